package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/birthday"
)

type birthdayRepository struct {
	db *sqlx.DB
}

var _ birthday.Repository = (*birthdayRepository)(nil) // interface compliance check

func NewBirthdayRepository(db *sqlx.DB) *birthdayRepository {
	return &birthdayRepository{db: db}
}

func (repo *birthdayRepository) CreateEmailJob(ctx context.Context, job birthday.EmailJob) (birthday.EmailJob, error) {
	const q = `
INSERT INTO email_jobs (student_id, scheduled_for, status, subject, body, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err := repo.db.GetContext(ctx, &job.ID, q,
		job.StudentID, job.ScheduledFor, job.Status, job.Subject, job.Body, job.LastError, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return birthday.EmailJob{}, errors.Wrap(err, "inserting email job")
	}
	return job, nil
}

func (repo *birthdayRepository) QueryEmailJobs(ctx context.Context) ([]birthday.EmailJob, error) {
	jobs := make([]birthday.EmailJob, 0)
	const q = "SELECT * FROM email_jobs ORDER BY scheduled_for DESC, id DESC"
	if err := repo.db.SelectContext(ctx, &jobs, q); err != nil {
		return nil, errors.Wrap(err, "querying email jobs")
	}
	return jobs, nil
}

func (repo *birthdayRepository) QueryDueEmailJobs(ctx context.Context, now time.Time) ([]birthday.EmailJob, error) {
	jobs := make([]birthday.EmailJob, 0)
	const q = "SELECT * FROM email_jobs WHERE status = $1 AND scheduled_for <= $2 ORDER BY scheduled_for, id"
	if err := repo.db.SelectContext(ctx, &jobs, q, birthday.JobPending, now); err != nil {
		return nil, errors.Wrap(err, "querying due email jobs")
	}
	return jobs, nil
}

func (repo *birthdayRepository) UpdateEmailJob(ctx context.Context, job birthday.EmailJob) (birthday.EmailJob, error) {
	const q = `
UPDATE email_jobs
SET status = $1, last_error = $2, updated_at = $3
WHERE id = $4`
	if _, err := repo.db.ExecContext(ctx, q, job.Status, job.LastError, job.UpdatedAt, job.ID); err != nil {
		return birthday.EmailJob{}, errors.Wrap(err, "updating email job")
	}
	return job, nil
}
