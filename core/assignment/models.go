package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// SubmissionStatus is the closed set of states a student's submission can be in.
type SubmissionStatus string

const (
	StatusNotSubmitted  SubmissionStatus = "not_submitted"
	StatusSubmitted     SubmissionStatus = "submitted"
	StatusSubmittedLate SubmissionStatus = "submitted_late"
	StatusExempt        SubmissionStatus = "exempt"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNotSubmitted, StatusSubmitted, StatusSubmittedLate, StatusExempt:
		return true
	}
	return false
}

// Submitted reports whether the status counts as a handed-in submission.
func (s SubmissionStatus) Submitted() bool {
	return s == StatusSubmitted || s == StatusSubmittedLate
}

type Assignment struct {
	ID            int         `json:"id" db:"id"`
	ClassID       int         `json:"class_id" db:"class_id"`
	Title         string      `json:"title" db:"title"`
	Description   null.String `json:"description" db:"description"`
	DueDate       core.Date   `json:"due_date" db:"due_date"`
	AttachmentURL null.String `json:"attachment_url" db:"attachment_url"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type Submission struct {
	ID           int              `json:"id" db:"id"`
	AssignmentID int              `json:"assignment_id" db:"assignment_id"`
	StudentID    int              `json:"student_id" db:"student_id"`
	Status       SubmissionStatus `json:"status" db:"status"`
	SubmittedAt  null.Time        `json:"submitted_at" db:"submitted_at"` // UTC; set once, never overwritten
	Score        null.Int         `json:"score" db:"score"`
	Feedback     null.String      `json:"feedback" db:"feedback"`
	FileURL      null.String      `json:"file_url" db:"file_url"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"` // UTC
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	ClassID       int       `json:"class_id" validate:"required"`
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	DueDate       core.Date `json:"due_date" validate:"required,futuredate"`
	AttachmentURL string    `json:"attachment_url" validate:"omitempty,url"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an
// existing Assignment; only non-nil fields overwrite.
type UpdateAssignment struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	DueDate       *core.Date `json:"due_date" validate:"omitempty,futuredate"`
	AttachmentURL *string    `json:"attachment_url" validate:"omitempty,url"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

func (ua *UpdateAssignment) Apply(asg Assignment) Assignment {
	if ua.Title != nil {
		asg.Title = core.CleanString(*ua.Title)
	}
	if ua.Description != nil {
		asg.Description = null.NewString(*ua.Description, *ua.Description != "")
	}
	if ua.DueDate != nil {
		asg.DueDate = *ua.DueDate
	}
	if ua.AttachmentURL != nil {
		asg.AttachmentURL = null.NewString(*ua.AttachmentURL, *ua.AttachmentURL != "")
	}
	return asg
}

// SubmissionUpsert is the partial payload applied to the (assignment, student)
// submission; only non-nil fields overwrite stored values.
type SubmissionUpsert struct {
	StudentID int               `json:"student_id" validate:"required"`
	Status    *SubmissionStatus `json:"status" validate:"omitempty,oneof=not_submitted submitted submitted_late exempt"`
	Score     *int              `json:"score" validate:"omitempty,min=0,max=100"`
	Feedback  *string           `json:"feedback"`
	FileURL   *string           `json:"file_url" validate:"omitempty,url"`
}

func (su *SubmissionUpsert) Validate(validate *validator.Validate) error {
	return validate.Struct(su)
}

// Apply merges the supplied fields into an existing submission. The
// submitted_at timestamp is stamped the first time the status lands in a
// submitted state and is never overwritten afterwards.
func (su SubmissionUpsert) Apply(sub Submission, now time.Time) Submission {
	if su.Status != nil {
		sub.Status = *su.Status
	}
	if su.Score != nil {
		sub.Score = null.IntFrom(*su.Score)
	}
	if su.Feedback != nil {
		sub.Feedback = null.NewString(*su.Feedback, *su.Feedback != "")
	}
	if su.FileURL != nil {
		sub.FileURL = null.NewString(*su.FileURL, *su.FileURL != "")
	}
	if sub.Status.Submitted() && !sub.SubmittedAt.Valid {
		sub.SubmittedAt = null.TimeFrom(now)
	}
	sub.UpdatedAt = now
	return sub
}

// Row builds a fresh submission from the payload.
func (su SubmissionUpsert) Row(assignmentID int, now time.Time) Submission {
	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    su.StudentID,
		Status:       StatusNotSubmitted,
		CreatedAt:    now,
	}
	return su.Apply(sub, now)
}
