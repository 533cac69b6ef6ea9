package school

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrClassroomNotFound  = errors.New("class not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this class")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		// QueryClassrooms does a case-insensitive match of `search` on
		// Classroom.Name or Classroom.Grade; results are ordered by name.
		QueryClassrooms(ctx context.Context, search string) ([]Classroom, error)
		GetClassroomByID(ctx context.Context, id int) (Classroom, error)
		UpdateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		// DeleteClassroom removes the classroom row only; enrollments and
		// assignments pointing at it are left behind.
		DeleteClassroom(ctx context.Context, id int) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		// ImportStudents inserts all students in one transaction, optionally
		// enrolling each into classID. Nothing is persisted on failure.
		ImportStudents(ctx context.Context, students []Student, classID *int) ([]Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id int) error
		// QueryActiveStudentsBornOn matches on exact (month, day) equality;
		// Feb-29 birthdays only ever match in leap years.
		QueryActiveStudentsBornOn(ctx context.Context, month time.Month, day int) ([]Student, error)

		GetEnrollment(ctx context.Context, classID, studentID int) (ClassEnrollment, error)
		CreateEnrollment(ctx context.Context, enr ClassEnrollment) (ClassEnrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]ClassEnrollment, error)
		// TransferEnrollments archives every non-archived enrollment of the
		// student and creates `enr`, all in one transaction.
		TransferEnrollments(ctx context.Context, studentID int, enr ClassEnrollment) (ClassEnrollment, error)
		// ArchiveStudent deactivates the student and archives all their
		// enrollment rows (idempotent on already-archived ones) in one transaction.
		ArchiveStudent(ctx context.Context, id int) (Student, error)
		// ClassRoster returns the students with a non-archived enrollment in
		// the class, ordered by (last_name, first_name).
		ClassRoster(ctx context.Context, classID int) ([]Student, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Classrooms

func (svc *Service) CreateClassroom(ctx context.Context, nc NewClassroom) (Classroom, error) {
	now := nowFunc().UTC()
	cls := Classroom{
		Name:         nc.Name,
		Grade:        nc.Grade,
		AcademicYear: nc.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nc.Section != "" {
		cls.Section.SetValid(nc.Section)
	}
	return svc.repo.CreateClassroom(ctx, cls)
}

func (svc *Service) QueryClassrooms(ctx context.Context, search string) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx, core.CleanString(search))
}

func (svc *Service) GetClassroom(ctx context.Context, id int) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *Service) UpdateClassroom(ctx context.Context, id int, uc UpdateClassroom) (Classroom, error) {
	cls, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	cls = uc.Apply(cls)
	cls.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateClassroom(ctx, cls)
}

func (svc *Service) DeleteClassroom(ctx context.Context, id int) error {
	if _, err := svc.repo.GetClassroomByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteClassroom(ctx, id)
}

func (svc *Service) ClassRoster(ctx context.Context, classID int) ([]Student, error) {
	if _, err := svc.repo.GetClassroomByID(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.ClassRoster(ctx, classID)
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	return svc.repo.CreateStudent(ctx, ns.student(nowFunc().UTC()))
}

func (svc *Service) QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std = us.Apply(std)
	std.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	if _, err := svc.repo.GetStudentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, id)
}

func (svc *Service) ActiveStudentsBornOn(ctx context.Context, month time.Month, day int) ([]Student, error) {
	return svc.repo.QueryActiveStudentsBornOn(ctx, month, day)
}

// Enrollment state machine

// Enroll creates a fresh enrollment for the (student, class) pair.
// Any existing row for the exact pair blocks it, archived or not.
func (svc *Service) Enroll(ctx context.Context, studentID, classID int) (ClassEnrollment, error) {
	if _, err := svc.repo.GetStudentByID(ctx, studentID); err != nil {
		return ClassEnrollment{}, err
	}
	if _, err := svc.repo.GetEnrollment(ctx, classID, studentID); err == nil {
		return ClassEnrollment{}, ErrAlreadyEnrolled
	} else if err != ErrEnrollmentNotFound {
		return ClassEnrollment{}, err
	}
	return svc.repo.CreateEnrollment(ctx, svc.newEnrollment(classID, studentID))
}

// Transfer archives every currently non-archived enrollment of the student
// (however many there are) and enrolls them into newClassID. Unlike Enroll,
// a transfer back into a previously attended class opens a fresh row.
func (svc *Service) Transfer(ctx context.Context, studentID, newClassID int) (ClassEnrollment, error) {
	if _, err := svc.repo.GetStudentByID(ctx, studentID); err != nil {
		return ClassEnrollment{}, err
	}
	return svc.repo.TransferEnrollments(ctx, studentID, svc.newEnrollment(newClassID, studentID))
}

// Archive deactivates the student and archives all their enrollments. Archived
// is terminal: re-activating requires a brand new enrollment via Enroll.
func (svc *Service) Archive(ctx context.Context, studentID int) (Student, error) {
	return svc.repo.ArchiveStudent(ctx, studentID)
}

func (svc *Service) Enrollments(ctx context.Context, filter EnrollmentFilter) ([]ClassEnrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

func (svc *Service) newEnrollment(classID, studentID int) ClassEnrollment {
	now := nowFunc().UTC()
	return ClassEnrollment{
		ClassID:   classID,
		StudentID: studentID,
		StartDate: core.DateOf(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
