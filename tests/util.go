package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

// NewConfig returns a self-contained configuration for tests; nothing is read
// from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:           "TEST",
		TestMode:      true,
		AppName:       "Darasa",
		SecretKey:     []byte("test-secret-key"),
		Timezone:      "Africa/Lubumbashi",
		FromEmailName: "Darasa",
		FromEmailAddr: "noreply@localhost",
		EmailBackend:  "console",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
	}
}

func CreateUser(t *testing.T, repo user.Repository, fullName, email, pwd string, isAdmin bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Email:     email,
		FullName:  fullName,
		Role:      user.RoleTeacher,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClassroom(t *testing.T, repo school.Repository, name, grade, year string) school.Classroom {
	now := time.Now().UTC()
	cls, err := repo.CreateClassroom(context.Background(), school.Classroom{
		Name:         name,
		Grade:        grade,
		AcademicYear: year,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return cls
}

func CreateStudent(
	t *testing.T,
	repo school.Repository,
	firstName, lastName string,
	dob core.Date,
	guardianName, guardianContact string,
) school.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), school.Student{
		FirstName:       firstName,
		LastName:        lastName,
		DateOfBirth:     dob,
		GuardianName:    guardianName,
		GuardianContact: guardianContact,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func Enroll(t *testing.T, repo school.Repository, classID, studentID int) school.ClassEnrollment {
	now := time.Now().UTC()
	enr, err := repo.CreateEnrollment(context.Background(), school.ClassEnrollment{
		ClassID:   classID,
		StudentID: studentID,
		StartDate: core.DateOf(now),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateAssignment(t *testing.T, repo assignment.Repository, classID int, title string, due core.Date) assignment.Assignment {
	now := time.Now().UTC()
	asg, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		ClassID:   classID,
		Title:     title,
		DueDate:   due,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}
