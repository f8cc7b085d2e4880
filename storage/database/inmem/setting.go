package inmemdb

import (
	"context"

	"github.com/trezcool/beasiswa/core/setting"
)

type settingRepository struct {
	db *DB
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) GetSetting(_ context.Context, key string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if val, ok := repo.db.settings[key]; ok {
		return val, nil
	}
	return "", setting.ErrNotFound
}

func (repo *settingRepository) SetSetting(_ context.Context, key, value string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.settings[key] = value
	return nil
}
