package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Classrooms

func (repo *schoolRepository) CreateClassroom(ctx context.Context, cls school.Classroom) (school.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls.ID = repo.db.nextPK()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) QueryClassrooms(ctx context.Context, search string) ([]school.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search = strings.ToLower(search)
	classes := make([]school.Classroom, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		if search != "" &&
			!strings.Contains(strings.ToLower(cls.Name), search) &&
			!strings.Contains(strings.ToLower(cls.Grade), search) {
			continue
		}
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) GetClassroomByID(ctx context.Context, id int) (school.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return school.Classroom{}, school.ErrClassroomNotFound
}

func (repo *schoolRepository) UpdateClassroom(ctx context.Context, cls school.Classroom) (school.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return school.Classroom{}, school.ErrClassroomNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) DeleteClassroom(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.classes, id)
	return nil
}

func (repo *schoolRepository) ClassRoster(ctx context.Context, classID int) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]school.Student, 0)
	for _, enr := range repo.db.enrollments {
		if enr.ClassID != classID || enr.Archived {
			continue
		}
		if std, ok := repo.db.students[enr.StudentID]; ok {
			students = append(students, *std)
		}
	}
	sortStudents(students)
	return students, nil
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = repo.db.nextPK()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) ImportStudents(ctx context.Context, students []school.Student, classID *int) ([]school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	imported := make([]school.Student, 0, len(students))
	for _, std := range students {
		std.ID = repo.db.nextPK()
		repo.db.students[std.ID] = &std
		if classID != nil {
			enr := school.ClassEnrollment{
				ID:        repo.db.nextPK(),
				ClassID:   *classID,
				StudentID: std.ID,
				StartDate: core.DateOf(std.CreatedAt),
				CreatedAt: std.CreatedAt,
				UpdatedAt: std.CreatedAt,
			}
			repo.db.enrollments[enr.ID] = &enr
		}
		imported = append(imported, std)
	}
	return imported, nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter school.StudentFilter) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	students := make([]school.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		if search != "" &&
			!strings.Contains(strings.ToLower(std.FirstName), search) &&
			!strings.Contains(strings.ToLower(std.LastName), search) &&
			!strings.Contains(strings.ToLower(std.GuardianName), search) {
			continue
		}
		if filter.Active != nil && std.Active != *filter.Active {
			continue
		}
		students = append(students, *std)
	}
	sortStudents(students)
	return students, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.students, id)
	return nil
}

func (repo *schoolRepository) QueryActiveStudentsBornOn(ctx context.Context, month time.Month, day int) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]school.Student, 0)
	for _, std := range repo.db.students {
		if std.Active && std.DateOfBirth.Month() == month && std.DateOfBirth.Day() == day {
			students = append(students, *std)
		}
	}
	sortStudents(students)
	return students, nil
}

// Enrollments

func (repo *schoolRepository) GetEnrollment(ctx context.Context, classID, studentID int) (school.ClassEnrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var found *school.ClassEnrollment
	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID && enr.StudentID == studentID {
			if found == nil || enr.ID > found.ID {
				found = enr
			}
		}
	}
	if found == nil {
		return school.ClassEnrollment{}, school.ErrEnrollmentNotFound
	}
	return *found, nil
}

func (repo *schoolRepository) CreateEnrollment(ctx context.Context, enr school.ClassEnrollment) (school.ClassEnrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.insertEnrollment(enr)
}

// insertEnrollment must be called with the write lock held. Duplicate
// (class, student) rows are allowed at this level; the duplicate check lives
// on the Enroll path only, so a transfer can reopen a past class.
func (repo *schoolRepository) insertEnrollment(enr school.ClassEnrollment) (school.ClassEnrollment, error) {
	enr.ID = repo.db.nextPK()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollments(ctx context.Context, filter school.EnrollmentFilter) ([]school.ClassEnrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]school.ClassEnrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.ClassID != 0 && enr.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != 0 && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.Archived != nil && enr.Archived != *filter.Archived {
			continue
		}
		enrollments = append(enrollments, *enr)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID > enrollments[j].ID })
	return enrollments, nil
}

func (repo *schoolRepository) TransferEnrollments(ctx context.Context, studentID int, enr school.ClassEnrollment) (school.ClassEnrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.archiveEnrollments(studentID, enr.CreatedAt)
	return repo.insertEnrollment(enr)
}

// archiveEnrollments must be called with the write lock held.
func (repo *schoolRepository) archiveEnrollments(studentID int, now time.Time) {
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && !enr.Archived {
			enr.Archived = true
			enr.EndDate = null.TimeFrom(now)
			enr.UpdatedAt = now
		}
	}
}

func (repo *schoolRepository) ArchiveStudent(ctx context.Context, id int) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std, ok := repo.db.students[id]
	if !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	now := time.Now().UTC()
	std.Active = false
	std.UpdatedAt = now
	repo.archiveEnrollments(id, now)
	return *std, nil
}

func sortStudents(students []school.Student) {
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
}
