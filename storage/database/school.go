package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Classrooms

func (repo *schoolRepository) CreateClassroom(ctx context.Context, cls school.Classroom) (school.Classroom, error) {
	const q = `
INSERT INTO classes (name, grade, section, academic_year, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := repo.db.GetContext(ctx, &cls.ID, q,
		cls.Name, cls.Grade, cls.Section, cls.AcademicYear, cls.CreatedAt, cls.UpdatedAt)
	if err != nil {
		return school.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo *schoolRepository) QueryClassrooms(ctx context.Context, search string) ([]school.Classroom, error) {
	classes := make([]school.Classroom, 0)
	q := "SELECT * FROM classes ORDER BY name"
	args := make([]interface{}, 0, 1)
	if search != "" {
		q = "SELECT * FROM classes WHERE name ILIKE $1 OR grade ILIKE $1 ORDER BY name"
		args = append(args, "%"+search+"%")
	}
	if err := repo.db.SelectContext(ctx, &classes, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassroomByID(ctx context.Context, id int) (school.Classroom, error) {
	var cls school.Classroom
	if err := repo.db.GetContext(ctx, &cls, "SELECT * FROM classes WHERE id = $1", id); err != nil {
		return school.Classroom{}, repo.trapNoRowsErr(err, school.ErrClassroomNotFound, "finding classroom")
	}
	return cls, nil
}

func (repo *schoolRepository) UpdateClassroom(ctx context.Context, cls school.Classroom) (school.Classroom, error) {
	const q = `
UPDATE classes
SET name = $1, grade = $2, section = $3, academic_year = $4, updated_at = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, q,
		cls.Name, cls.Grade, cls.Section, cls.AcademicYear, cls.UpdatedAt, cls.ID)
	if err != nil {
		return school.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Classroom{}, school.ErrClassroomNotFound
	}
	return cls, nil
}

func (repo *schoolRepository) DeleteClassroom(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return nil
}

func (repo *schoolRepository) ClassRoster(ctx context.Context, classID int) ([]school.Student, error) {
	const q = `
SELECT s.*
FROM students s
         JOIN class_students cs ON cs.student_id = s.id
WHERE cs.class_id = $1
  AND NOT cs.archived
ORDER BY s.last_name, s.first_name`
	students := make([]school.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying class roster")
	}
	return students, nil
}

// Students

const insertStudentSQL = `
INSERT INTO students (first_name, last_name, date_of_birth, photo_url, guardian_name, guardian_contact,
                      address, notes, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	err := repo.db.GetContext(ctx, &std.ID, insertStudentSQL,
		std.FirstName, std.LastName, std.DateOfBirth, std.PhotoURL, std.GuardianName, std.GuardianContact,
		std.Address, std.Notes, std.Active, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *schoolRepository) ImportStudents(ctx context.Context, students []school.Student, classID *int) ([]school.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "starting import")
	}
	defer func() { _ = tx.Rollback() }()

	imported := make([]school.Student, 0, len(students))
	for _, std := range students {
		err = tx.GetContext(ctx, &std.ID, insertStudentSQL,
			std.FirstName, std.LastName, std.DateOfBirth, std.PhotoURL, std.GuardianName, std.GuardianContact,
			std.Address, std.Notes, std.Active, std.CreatedAt, std.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "inserting student")
		}
		if classID != nil {
			enr := newImportEnrollment(*classID, std.ID, std.CreatedAt)
			if err = insertEnrollment(ctx, tx, &enr); err != nil {
				return nil, err
			}
		}
		imported = append(imported, std)
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing import")
	}
	return imported, nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter school.StudentFilter) ([]school.Student, error) {
	q := "SELECT * FROM students"
	var conds []string
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, "(first_name ILIKE $1 OR last_name ILIKE $1 OR guardian_name ILIKE $1)")
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		if len(args) == 1 {
			conds = append(conds, "active = $1")
		} else {
			conds = append(conds, "active = $2")
		}
	}
	for i, cond := range conds {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	q += " ORDER BY last_name, first_name"

	students := make([]school.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	var std school.Student
	if err := repo.db.GetContext(ctx, &std, "SELECT * FROM students WHERE id = $1", id); err != nil {
		return school.Student{}, repo.trapNoRowsErr(err, school.ErrStudentNotFound, "finding student")
	}
	return std, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	const q = `
UPDATE students
SET first_name = $1, last_name = $2, date_of_birth = $3, photo_url = $4, guardian_name = $5,
    guardian_contact = $6, address = $7, notes = $8, active = $9, updated_at = $10
WHERE id = $11`
	res, err := repo.db.ExecContext(ctx, q,
		std.FirstName, std.LastName, std.DateOfBirth, std.PhotoURL, std.GuardianName,
		std.GuardianContact, std.Address, std.Notes, std.Active, std.UpdatedAt, std.ID)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return std, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

func (repo *schoolRepository) QueryActiveStudentsBornOn(ctx context.Context, month time.Month, day int) ([]school.Student, error) {
	const q = `
SELECT *
FROM students
WHERE active
  AND EXTRACT(MONTH FROM date_of_birth) = $1
  AND EXTRACT(DAY FROM date_of_birth) = $2
ORDER BY last_name, first_name`
	students := make([]school.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, int(month), day); err != nil {
		return nil, errors.Wrap(err, "querying birthday students")
	}
	return students, nil
}

// Enrollments

const insertEnrollmentSQL = `
INSERT INTO class_students (class_id, student_id, start_date, end_date, archived, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

// insertEnrollment inserts unconditionally; the duplicate-pair check lives on
// the Enroll path only, so a transfer can reopen a past class.
func insertEnrollment(ctx context.Context, tx sqlx.ExtContext, enr *school.ClassEnrollment) error {
	err := sqlx.GetContext(ctx, tx, &enr.ID, insertEnrollmentSQL,
		enr.ClassID, enr.StudentID, enr.StartDate, enr.EndDate, enr.Archived, enr.CreatedAt, enr.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func newImportEnrollment(classID, studentID int, now time.Time) school.ClassEnrollment {
	return school.ClassEnrollment{
		ClassID:   classID,
		StudentID: studentID,
		StartDate: core.DateOf(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (repo *schoolRepository) GetEnrollment(ctx context.Context, classID, studentID int) (school.ClassEnrollment, error) {
	var enr school.ClassEnrollment
	const q = "SELECT * FROM class_students WHERE class_id = $1 AND student_id = $2 ORDER BY id DESC LIMIT 1"
	if err := repo.db.GetContext(ctx, &enr, q, classID, studentID); err != nil {
		return school.ClassEnrollment{}, repo.trapNoRowsErr(err, school.ErrEnrollmentNotFound, "finding enrollment")
	}
	return enr, nil
}

func (repo *schoolRepository) CreateEnrollment(ctx context.Context, enr school.ClassEnrollment) (school.ClassEnrollment, error) {
	if err := insertEnrollment(ctx, repo.db, &enr); err != nil {
		return school.ClassEnrollment{}, err
	}
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollments(ctx context.Context, filter school.EnrollmentFilter) ([]school.ClassEnrollment, error) {
	q := "SELECT * FROM class_students"
	var conds []string
	var args []interface{}
	if filter.ClassID != 0 {
		args = append(args, filter.ClassID)
		conds = append(conds, "class_id = $1")
	}
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		if len(args) == 1 {
			conds = append(conds, "student_id = $1")
		} else {
			conds = append(conds, "student_id = $2")
		}
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		switch len(args) {
		case 1:
			conds = append(conds, "archived = $1")
		case 2:
			conds = append(conds, "archived = $2")
		default:
			conds = append(conds, "archived = $3")
		}
	}
	for i, cond := range conds {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	q += " ORDER BY created_at DESC, id DESC"

	enrollments := make([]school.ClassEnrollment, 0)
	if err := repo.db.SelectContext(ctx, &enrollments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return enrollments, nil
}

const archiveEnrollmentsSQL = `
UPDATE class_students
SET archived = TRUE, end_date = $1, updated_at = $1
WHERE student_id = $2
  AND NOT archived`

func (repo *schoolRepository) TransferEnrollments(ctx context.Context, studentID int, enr school.ClassEnrollment) (school.ClassEnrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.ClassEnrollment{}, errors.Wrap(err, "starting transfer")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, archiveEnrollmentsSQL, enr.CreatedAt, studentID); err != nil {
		return school.ClassEnrollment{}, errors.Wrap(err, "archiving enrollments")
	}
	if err = insertEnrollment(ctx, tx, &enr); err != nil {
		return school.ClassEnrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return school.ClassEnrollment{}, errors.Wrap(err, "committing transfer")
	}
	return enr, nil
}

func (repo *schoolRepository) ArchiveStudent(ctx context.Context, id int) (school.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "starting archival")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var std school.Student
	const q = "UPDATE students SET active = FALSE, updated_at = $1 WHERE id = $2 RETURNING *"
	if err = tx.GetContext(ctx, &std, q, now, id); err != nil {
		return school.Student{}, repo.trapNoRowsErr(err, school.ErrStudentNotFound, "deactivating student")
	}
	if _, err = tx.ExecContext(ctx, archiveEnrollmentsSQL, now, id); err != nil {
		return school.Student{}, errors.Wrap(err, "archiving enrollments")
	}
	if err = tx.Commit(); err != nil {
		return school.Student{}, errors.Wrap(err, "committing archival")
	}
	return std, nil
}
