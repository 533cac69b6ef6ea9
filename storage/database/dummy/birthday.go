package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/birthday"
)

type birthdayRepository struct {
	db *DB
}

var _ birthday.Repository = (*birthdayRepository)(nil) // interface compliance check

func NewBirthdayRepository(db *DB) *birthdayRepository {
	return &birthdayRepository{db: db}
}

func (repo *birthdayRepository) CreateEmailJob(ctx context.Context, job birthday.EmailJob) (birthday.EmailJob, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	job.ID = repo.db.nextPK()
	repo.db.emailJobs[job.ID] = &job
	return job, nil
}

func (repo *birthdayRepository) QueryEmailJobs(ctx context.Context) ([]birthday.EmailJob, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	jobs := make([]birthday.EmailJob, 0, len(repo.db.emailJobs))
	for _, job := range repo.db.emailJobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].ScheduledFor.Equal(jobs[j].ScheduledFor) {
			return jobs[i].ScheduledFor.After(jobs[j].ScheduledFor)
		}
		return jobs[i].ID > jobs[j].ID
	})
	return jobs, nil
}

func (repo *birthdayRepository) QueryDueEmailJobs(ctx context.Context, now time.Time) ([]birthday.EmailJob, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	jobs := make([]birthday.EmailJob, 0)
	for _, job := range repo.db.emailJobs {
		if job.Status == birthday.JobPending && !job.ScheduledFor.After(now) {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].ScheduledFor.Equal(jobs[j].ScheduledFor) {
			return jobs[i].ScheduledFor.Before(jobs[j].ScheduledFor)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func (repo *birthdayRepository) UpdateEmailJob(ctx context.Context, job birthday.EmailJob) (birthday.EmailJob, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.emailJobs[job.ID]; !ok {
		return birthday.EmailJob{}, birthday.ErrJobNotFound
	}
	repo.db.emailJobs[job.ID] = &job
	return job, nil
}
