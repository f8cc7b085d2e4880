package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core/setting"
)

type settingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db *sqlx.DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo settingRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	if err := repo.db.GetContext(ctx, &val, "SELECT value FROM settings WHERE key = $1", key); err != nil {
		return "", trapNoRowsErr(err, setting.ErrNotFound, "getting setting")
	}
	return val, nil
}

func (repo settingRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value",
		key, value)
	return errors.Wrap(err, "saving setting")
}
