package setting

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound = errors.New("setting not found")

	nowFunc = time.Now // mockable
)

// Setting is a unique key/value pair of teacher-editable configuration.
type Setting struct {
	ID        int       `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewSetting contains information needed to create or replace a Setting.
type NewSetting struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

func (ns *NewSetting) Validate(validate *validator.Validate) error {
	ns.Key = core.CleanString(ns.Key, true /* lower */)
	return validate.Struct(ns)
}

type (
	Repository interface {
		GetSettingByKey(ctx context.Context, key string) (Setting, error)
		// UpsertSetting replaces the value for an existing key or inserts a
		// new row.
		UpsertSetting(ctx context.Context, st Setting) (Setting, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, key string) (Setting, error) {
	return svc.repo.GetSettingByKey(ctx, core.CleanString(key, true /* lower */))
}

func (svc *Service) Upsert(ctx context.Context, ns NewSetting) (Setting, error) {
	now := nowFunc().UTC()
	st := Setting{
		Key:       ns.Key,
		Value:     ns.Value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.UpsertSetting(ctx, st)
}
