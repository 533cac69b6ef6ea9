package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

const seedPassword = "teacher123"

// seed loads a starter teacher account, classroom, roster and assignment so a
// fresh install has something to look at. It refuses to run on a non-empty
// database.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	users, err := cli.usrRepo.QueryAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		fmt.Println("database is not empty, skipping seed")
		return nil
	}

	now := time.Now().UTC()
	owner := user.User{
		Email:     "teacher@example.com",
		FullName:  "Lead Teacher",
		Role:      user.RoleTeacher,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = owner.SetPassword(seedPassword); err != nil {
		return err
	}
	if owner, err = cli.usrRepo.CreateUser(ctx, owner); err != nil {
		return err
	}

	schoolSvc := school.NewService(cli.schoolRepo)
	cls, err := schoolSvc.CreateClassroom(ctx, school.NewClassroom{
		Name:         "Primary Class",
		Grade:        "Grade 4",
		AcademicYear: fmt.Sprintf("%d-%d", now.Year(), now.Year()+1),
	})
	if err != nil {
		return err
	}

	roster := []school.NewStudent{
		{
			FirstName:       "Amani",
			LastName:        "Okafor",
			DateOfBirth:     core.NewDate(2015, time.March, 10),
			GuardianName:    "Ngozi Okafor",
			GuardianContact: "ngozi.okafor@example.com",
		},
		{
			FirstName:       "Zawadi",
			LastName:        "Mwangi",
			DateOfBirth:     core.NewDate(2014, time.November, 22),
			GuardianName:    "Wanjiru Mwangi",
			GuardianContact: "wanjiru.mwangi@example.com",
		},
		{
			FirstName:       "Baraka",
			LastName:        "Otieno",
			DateOfBirth:     core.NewDate(2015, time.June, 5),
			GuardianName:    "Akinyi Otieno",
			GuardianContact: "akinyi.otieno@example.com",
		},
	}
	for _, ns := range roster {
		std, err := schoolSvc.CreateStudent(ctx, ns)
		if err != nil {
			return err
		}
		if _, err = schoolSvc.Enroll(ctx, std.ID, cls.ID); err != nil {
			return err
		}
	}

	assignmentSvc := assignment.NewService(cli.assignmentRepo)
	if _, err = assignmentSvc.Create(ctx, assignment.NewAssignment{
		ClassID: cls.ID,
		Title:   "Reading Log",
		DueDate: core.DateOf(now.AddDate(0, 0, 7)),
	}); err != nil {
		return err
	}

	fmt.Printf("seeded owner %s (password: %s), classroom %q and %d students\n",
		owner.Email, seedPassword, cls.Name, len(roster))
	return nil
}
