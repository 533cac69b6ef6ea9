package user_test

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func TestService_Register(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	svc := user.NewService(dummydb.NewUserRepository(db))
	validate, _ := core.NewValidator()
	ctx := context.Background()

	nu := user.NewUser{Email: " Jane@Test.CD ", FullName: " Jane Teacher ", Password: "s3cretpwd"}
	if err := nu.Validate(validate, svc); err != nil {
		t.Fatalf("NewUser.Validate() error = %v", err)
	}
	usr, err := svc.Register(ctx, nu)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if usr.Email != "jane@test.cd" {
		t.Errorf("Register() email = %q; want %q", usr.Email, "jane@test.cd")
	}
	if usr.FullName != "Jane Teacher" {
		t.Errorf("Register() fullName = %q; want %q", usr.FullName, "Jane Teacher")
	}
	if usr.Role != user.RoleTeacher {
		t.Errorf("Register() role = %q; want %q", usr.Role, user.RoleTeacher)
	}
	if usr.IsAdmin() {
		t.Error("Register() created an admin")
	}
	if err := usr.CheckPassword("s3cretpwd"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
	if err := usr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}

	// a duplicate email is rejected at validation time
	dup := user.NewUser{Email: "jane@test.cd", FullName: "Other Teacher", Password: "s3cretpwd"}
	err = dup.Validate(validate, svc)
	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("Validate() error = %v; want *core.ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "email" {
		t.Errorf("Validate() fields = %+v; want one error on email", vErr.Fields)
	}

	// the live user can be looked up case-insensitively
	got, err := svc.GetByEmail(ctx, "JANE@test.cd")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != usr.ID {
		t.Errorf("GetByEmail() ID = %d; want %d", got.ID, usr.ID)
	}
	if _, err = svc.GetByEmail(ctx, "nobody@test.cd"); err != user.ErrNotFound {
		t.Errorf("GetByEmail() error = %v; want ErrNotFound", err)
	}
}
