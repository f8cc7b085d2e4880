// Package activity keeps the audit trail of what users do on the portal.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core"
)

const (
	// UserDetailLimit is the number of entries shown along a user's details.
	UserDetailLimit = 30
	// UserLogsLimit is the number of entries shown on a user's log page.
	UserLogsLimit = 100
)

type Log struct {
	ID        int64      `json:"id"`
	UserID    null.Int64 `json:"user_id"`
	Action    string     `json:"action"`
	Detail    string     `json:"detail"`
	CreatedAt time.Time  `json:"created_at"`
}

type Repository interface {
	CreateLog(ctx context.Context, l Log) (Log, error)
	// QueryUserLogs returns the latest logs of a user, newest first.
	QueryUserLogs(ctx context.Context, userID int64, limit int) ([]Log, error)
	LastActivity(ctx context.Context, userID int64) (null.Time, error)
}

type Service struct {
	repo   Repository
	logger core.Logger
}

var _ core.ActivityRecorder = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, logger: logger}
}

// Record logs an action of a user (0 for anonymous). Failures are logged, never returned.
func (svc *Service) Record(ctx context.Context, userID int64, action, detail string) {
	l := Log{
		UserID:    null.NewInt64(userID, userID > 0),
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := svc.repo.CreateLog(ctx, l); err != nil {
		svc.logger.Error(fmt.Sprintf("recording activity %q of user %d", action, userID), err)
	}
}

func (svc *Service) UserLogs(ctx context.Context, userID int64, limit int) ([]Log, error) {
	logs, err := svc.repo.QueryUserLogs(ctx, userID, limit)
	return logs, errors.Wrap(err, "querying user logs")
}

func (svc *Service) LastActivity(ctx context.Context, userID int64) (null.Time, error) {
	last, err := svc.repo.LastActivity(ctx, userID)
	return last, errors.Wrap(err, "getting last activity")
}
