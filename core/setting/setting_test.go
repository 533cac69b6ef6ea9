package setting_test

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/setting"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func TestService_Upsert(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	svc := setting.NewService(dummydb.NewSettingRepository(db))
	validate, _ := core.NewValidator()
	ctx := context.Background()

	if _, err := svc.Get(ctx, "birthday_subject"); err != setting.ErrNotFound {
		t.Fatalf("Get() error = %v; want ErrNotFound", err)
	}

	// keys are normalized to lowercase
	ns := setting.NewSetting{Key: " Birthday_Subject ", Value: "Hooray {{student_name}}!"}
	if err := ns.Validate(validate); err != nil {
		t.Fatalf("NewSetting.Validate() error = %v", err)
	}
	st, err := svc.Upsert(ctx, ns)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if st.Key != "birthday_subject" {
		t.Errorf("Upsert() key = %q; want %q", st.Key, "birthday_subject")
	}

	// upserting the same key updates the value in place
	updated, err := svc.Upsert(ctx, setting.NewSetting{Key: "birthday_subject", Value: "Cheers {{student_name}}!"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if updated.ID != st.ID {
		t.Errorf("Upsert() ID = %d; want %d", updated.ID, st.ID)
	}
	if updated.Value != "Cheers {{student_name}}!" {
		t.Errorf("Upsert() value = %q", updated.Value)
	}

	got, err := svc.Get(ctx, "BIRTHDAY_SUBJECT")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Value != updated.Value {
		t.Errorf("Get() value = %q; want %q", got.Value, updated.Value)
	}
}
