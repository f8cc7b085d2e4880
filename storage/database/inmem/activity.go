package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/beasiswa/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateLog(_ context.Context, l activity.Log) (activity.Log, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// the user may have been deleted meanwhile
	if l.UserID.Valid {
		if _, ok := repo.db.users[l.UserID.Int64]; !ok {
			l.UserID = null.Int64{}
		}
	}
	l.ID = repo.db.nextID(tableLogs)
	repo.db.logs = append(repo.db.logs, l)
	return l, nil
}

func (repo *activityRepository) QueryUserLogs(_ context.Context, userID int64, limit int) ([]activity.Log, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	logs := make([]activity.Log, 0)
	for _, l := range repo.db.logs {
		if l.UserID.Valid && l.UserID.Int64 == userID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		return newer(logs[i].CreatedAt, logs[i].ID, logs[j].CreatedAt, logs[j].ID)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (repo *activityRepository) LastActivity(_ context.Context, userID int64) (null.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.lastActive(userID), nil
}
