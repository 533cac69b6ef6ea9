package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/setting"
)

type settingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *sqlx.DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) GetSettingByKey(ctx context.Context, key string) (setting.Setting, error) {
	var st setting.Setting
	if err := repo.db.GetContext(ctx, &st, "SELECT * FROM settings WHERE key = $1", key); err != nil {
		if err == sql.ErrNoRows {
			return setting.Setting{}, setting.ErrNotFound
		}
		return setting.Setting{}, errors.Wrap(err, "finding setting")
	}
	return st, nil
}

func (repo *settingRepository) UpsertSetting(ctx context.Context, st setting.Setting) (setting.Setting, error) {
	const q = `
INSERT INTO settings (key, value, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	err := repo.db.QueryRowxContext(ctx, q, st.Key, st.Value, st.CreatedAt, st.UpdatedAt).
		Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return setting.Setting{}, errors.Wrap(err, "upserting setting")
	}
	return st, nil
}
