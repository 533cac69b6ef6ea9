package birthday

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// JobStatus is the closed set of delivery states of an EmailJob.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobSent, JobFailed:
		return true
	}
	return false
}

// EmailJob is one scheduled birthday greeting. The scheduler creates them
// pending; the dispatcher flips them to sent or failed.
type EmailJob struct {
	ID           int         `json:"id" db:"id"`
	StudentID    int         `json:"student_id" db:"student_id"`
	ScheduledFor time.Time   `json:"scheduled_for" db:"scheduled_for"`
	Status       JobStatus   `json:"status" db:"status"`
	Subject      string      `json:"subject" db:"subject"`
	Body         string      `json:"body" db:"body"`
	LastError    null.String `json:"last_error" db:"last_error"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Template is the rendered (or stored) birthday greeting copy.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
