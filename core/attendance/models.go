package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Status is the closed set of attendance outcomes for a student on a day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

type Attendance struct {
	ID        int         `json:"id" db:"id"`
	ClassID   int         `json:"class_id" db:"class_id"`
	StudentID int         `json:"student_id" db:"student_id"`
	Date      core.Date   `json:"date" db:"date"`
	Status    Status      `json:"status" db:"status"`
	Note      null.String `json:"note" db:"note"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// Record is one entry of a bulk attendance upsert, keyed on
// (class_id, student_id, date). An absent Note keeps the stored value.
type Record struct {
	ClassID   int       `json:"class_id" validate:"required"`
	StudentID int       `json:"student_id" validate:"required"`
	Date      core.Date `json:"date" validate:"required"`
	Status    Status    `json:"status" validate:"required,oneof=present absent late excused"`
	Note      *string   `json:"note"`
}

func (r *Record) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

// Key identifies the attendance row this record targets.
func (r Record) Key() Key {
	return Key{ClassID: r.ClassID, StudentID: r.StudentID, Date: r.Date}
}

// Row builds a fresh Attendance from the record.
func (r Record) Row(now time.Time) Attendance {
	att := Attendance{
		ClassID:   r.ClassID,
		StudentID: r.StudentID,
		Date:      r.Date,
		Status:    r.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.Note != nil {
		att.Note = null.NewString(*r.Note, *r.Note != "")
	}
	return att
}

// Apply merges the record's supplied fields into an existing row.
func (r Record) Apply(att Attendance, now time.Time) Attendance {
	att.Status = r.Status
	if r.Note != nil {
		att.Note = null.NewString(*r.Note, *r.Note != "")
	}
	att.UpdatedAt = now
	return att
}

type Key struct {
	ClassID   int
	StudentID int
	Date      core.Date
}

type Filter struct {
	ClassID   int
	StartDate core.Date
	EndDate   core.Date
}

// Stats summarizes the recent attendance window of a class.
type Stats struct {
	PresentPct float64      `json:"present_pct"`
	Trend      []TrendPoint `json:"trend"`
}

type TrendPoint struct {
	Date   core.Date `json:"date"`
	Status Status    `json:"status"`
}

// ExportRow is one line of the attendance CSV export.
type ExportRow struct {
	Class   string      `db:"class"`
	Student string      `db:"student"`
	Date    core.Date   `db:"date"`
	Status  Status      `db:"status"`
	Note    null.String `db:"note"`
}

// StatusCount aggregates attendance rows per class and status.
type StatusCount struct {
	ClassID int    `json:"class_id" db:"class_id"`
	Status  Status `json:"status" db:"status"`
	Count   int    `json:"count" db:"count"`
}
