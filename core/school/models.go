package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type Classroom struct {
	ID           int         `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Grade        string      `json:"grade" db:"grade"`
	Section      null.String `json:"section" db:"section"`
	AcademicYear string      `json:"academic_year" db:"academic_year"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type Student struct {
	ID              int         `json:"id" db:"id"`
	FirstName       string      `json:"first_name" db:"first_name"`
	LastName        string      `json:"last_name" db:"last_name"`
	DateOfBirth     core.Date   `json:"date_of_birth" db:"date_of_birth"`
	PhotoURL        null.String `json:"photo_url" db:"photo_url"`
	GuardianName    string      `json:"guardian_name" db:"guardian_name"`
	GuardianContact string      `json:"guardian_contact" db:"guardian_contact"`
	Address         null.String `json:"address" db:"address"`
	Notes           null.String `json:"notes" db:"notes"`
	Active          bool        `json:"active" db:"active"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (s *Student) FullName() string { return s.FirstName + " " + s.LastName }

// ClassEnrollment ties a Student to a Classroom. An enrollment is never
// deleted: transfers and student archival flip it to archived and a fresh
// row is created for the new class.
type ClassEnrollment struct {
	ID        int       `json:"id" db:"id"`
	ClassID   int       `json:"class_id" db:"class_id"`
	StudentID int       `json:"student_id" db:"student_id"`
	StartDate core.Date `json:"start_date" db:"start_date"`
	EndDate   null.Time `json:"end_date" db:"end_date"`
	Archived  bool      `json:"archived" db:"archived"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name         string `json:"name" validate:"required"`
	Grade        string `json:"grade" validate:"required"`
	Section      string `json:"section"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Section = core.CleanString(nc.Section)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return validate.Struct(nc)
}

// UpdateClassroom defines what information may be provided to modify an
// existing Classroom; only non-nil fields overwrite.
type UpdateClassroom struct {
	Name         *string `json:"name"`
	Grade        *string `json:"grade"`
	Section      *string `json:"section"`
	AcademicYear *string `json:"academic_year"`
}

func (uc *UpdateClassroom) Validate(validate *validator.Validate) error {
	return validate.Struct(uc)
}

func (uc *UpdateClassroom) Apply(cls Classroom) Classroom {
	if uc.Name != nil {
		cls.Name = core.CleanString(*uc.Name)
	}
	if uc.Grade != nil {
		cls.Grade = core.CleanString(*uc.Grade)
	}
	if uc.Section != nil {
		cls.Section = null.NewString(*uc.Section, *uc.Section != "")
	}
	if uc.AcademicYear != nil {
		cls.AcademicYear = core.CleanString(*uc.AcademicYear)
	}
	return cls
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName       string    `json:"first_name" validate:"required"`
	LastName        string    `json:"last_name" validate:"required"`
	DateOfBirth     core.Date `json:"date_of_birth" validate:"required,pastdate"`
	PhotoURL        string    `json:"photo_url" validate:"omitempty,url"`
	GuardianName    string    `json:"guardian_name" validate:"required"`
	GuardianContact string    `json:"guardian_contact" validate:"required"`
	Address         string    `json:"address"`
	Notes           string    `json:"notes"`
	Active          *bool     `json:"active"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianContact = core.CleanString(ns.GuardianContact)
	return validate.Struct(ns)
}

func (ns *NewStudent) student(now time.Time) Student {
	active := true
	if ns.Active != nil {
		active = *ns.Active
	}
	return Student{
		FirstName:       ns.FirstName,
		LastName:        ns.LastName,
		DateOfBirth:     ns.DateOfBirth,
		PhotoURL:        null.NewString(ns.PhotoURL, ns.PhotoURL != ""),
		GuardianName:    ns.GuardianName,
		GuardianContact: ns.GuardianContact,
		Address:         null.NewString(ns.Address, ns.Address != ""),
		Notes:           null.NewString(ns.Notes, ns.Notes != ""),
		Active:          active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UpdateStudent defines what information may be provided to modify an
// existing Student; only non-nil fields overwrite.
type UpdateStudent struct {
	FirstName       *string    `json:"first_name"`
	LastName        *string    `json:"last_name"`
	DateOfBirth     *core.Date `json:"date_of_birth" validate:"omitempty,pastdate"`
	PhotoURL        *string    `json:"photo_url" validate:"omitempty,url"`
	GuardianName    *string    `json:"guardian_name"`
	GuardianContact *string    `json:"guardian_contact"`
	Address         *string    `json:"address"`
	Notes           *string    `json:"notes"`
	Active          *bool      `json:"active"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

func (us *UpdateStudent) Apply(std Student) Student {
	if us.FirstName != nil {
		std.FirstName = core.CleanString(*us.FirstName)
	}
	if us.LastName != nil {
		std.LastName = core.CleanString(*us.LastName)
	}
	if us.DateOfBirth != nil {
		std.DateOfBirth = *us.DateOfBirth
	}
	if us.PhotoURL != nil {
		std.PhotoURL = null.NewString(*us.PhotoURL, *us.PhotoURL != "")
	}
	if us.GuardianName != nil {
		std.GuardianName = core.CleanString(*us.GuardianName)
	}
	if us.GuardianContact != nil {
		std.GuardianContact = core.CleanString(*us.GuardianContact)
	}
	if us.Address != nil {
		std.Address = null.NewString(*us.Address, *us.Address != "")
	}
	if us.Notes != nil {
		std.Notes = null.NewString(*us.Notes, *us.Notes != "")
	}
	if us.Active != nil {
		std.Active = *us.Active
	}
	return std
}

type StudentFilter struct {
	Search string `query:"search"`
	Active *bool  `query:"active"`
}

func (f *StudentFilter) Clean() {
	f.Search = core.CleanString(f.Search)
}

type EnrollmentFilter struct {
	ClassID   int
	StudentID int
	Archived  *bool
}
