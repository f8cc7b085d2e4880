package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/activity"
)

type activityRow struct {
	ID        int64      `db:"id"`
	UserID    null.Int64 `db:"user_id"`
	Action    string     `db:"action"`
	Detail    string     `db:"detail"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r activityRow) toLog() activity.Log {
	return activity.Log{ID: r.ID, UserID: r.UserID, Action: r.Action, Detail: r.Detail, CreatedAt: r.CreatedAt.UTC()}
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo activityRepository) CreateLog(ctx context.Context, l activity.Log) (activity.Log, error) {
	row := activityRow{UserID: l.UserID, Action: l.Action, Detail: l.Detail, CreatedAt: l.CreatedAt.UTC()}
	id, err := insert(ctx, repo.db, `INSERT INTO activity_logs (user_id, action, detail, created_at)
		VALUES (:user_id, :action, :detail, :created_at) RETURNING id`, row)
	if err != nil {
		return activity.Log{}, errors.Wrap(err, "inserting activity log")
	}
	row.ID = id
	return row.toLog(), nil
}

func (repo activityRepository) QueryUserLogs(ctx context.Context, userID int64, limit int) ([]activity.Log, error) {
	var rows []activityRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT id, user_id, action, detail, created_at FROM activity_logs
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying activity logs")
	}
	logs := make([]activity.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toLog())
	}
	return logs, nil
}

func (repo activityRepository) LastActivity(ctx context.Context, userID int64) (null.Time, error) {
	var last null.Time
	err := repo.db.GetContext(ctx, &last, "SELECT MAX(created_at) FROM activity_logs WHERE user_id = $1", userID)
	return last, errors.Wrap(err, "getting last activity")
}
