package dummydb

import (
	"context"

	"github.com/trezcool/darasa/core/setting"
)

type settingRepository struct {
	db *DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) GetSettingByKey(ctx context.Context, key string) (setting.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.settings {
		if st.Key == key {
			return *st, nil
		}
	}
	return setting.Setting{}, setting.ErrNotFound
}

func (repo *settingRepository) UpsertSetting(ctx context.Context, st setting.Setting) (setting.Setting, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.settings {
		if existing.Key == st.Key {
			existing.Value = st.Value
			existing.UpdatedAt = st.UpdatedAt
			return *existing, nil
		}
	}
	st.ID = repo.db.nextPK()
	repo.db.settings[st.ID] = &st
	return st, nil
}
