package core

import "context"

// ActivityRecorder keeps the audit trail of user actions. Recording never fails the calling operation.
type ActivityRecorder interface {
	Record(ctx context.Context, userID int64, action, detail string)
}
