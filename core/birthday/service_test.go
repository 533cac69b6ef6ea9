package birthday_test

import (
	"context"
	"io/ioutil"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/birthday"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/setting"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

type birthdayFixture struct {
	conf         *core.Config
	svc          *birthday.Service
	settingSvc   *setting.Service
	schoolRepo   school.Repository
	birthdayRepo birthday.Repository
}

func newBirthdayFixture(t *testing.T) birthdayFixture {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	conf := testutil.NewConfig()
	settingSvc := setting.NewService(dummydb.NewSettingRepository(db))
	schoolRepo := dummydb.NewSchoolRepository(db)
	birthdayRepo := dummydb.NewBirthdayRepository(db)
	logger := logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	return birthdayFixture{
		conf:         conf,
		settingSvc:   settingSvc,
		schoolRepo:   schoolRepo,
		birthdayRepo: birthdayRepo,
		svc:          birthday.NewService(birthdayRepo, settingSvc, school.NewService(schoolRepo), mailSvc, logger, conf),
	}
}

func TestService_Template(t *testing.T) {
	fix := newBirthdayFixture(t)
	ctx := context.Background()

	tpl, err := fix.svc.Template(ctx)
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	if tpl.Subject != birthday.DefaultSubject || tpl.Body != birthday.DefaultBody {
		t.Errorf("Template() = %+v; want the defaults", tpl)
	}

	// overriding the subject leaves the body on its default
	_, err = fix.settingSvc.Upsert(ctx, setting.NewSetting{Key: birthday.SubjectSettingKey, Value: "Hooray {{student_name}}!"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	tpl, err = fix.svc.Template(ctx)
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	if tpl.Subject != "Hooray {{student_name}}!" {
		t.Errorf("Template() subject = %q", tpl.Subject)
	}
	if tpl.Body != birthday.DefaultBody {
		t.Errorf("Template() body = %q; want the default", tpl.Body)
	}

	_, err = fix.settingSvc.Upsert(ctx, setting.NewSetting{Key: birthday.BodySettingKey, Value: "Cheers from {{class_name}}"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	tpl, err = fix.svc.Template(ctx)
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	if tpl.Body != "Cheers from {{class_name}}" {
		t.Errorf("Template() body = %q", tpl.Body)
	}
}

func TestService_Schedule(t *testing.T) {
	fix := newBirthdayFixture(t)
	ctx := context.Background()
	today := time.Now().In(fix.conf.Location())
	tomorrow := today.AddDate(0, 0, 1)

	celebrant := testutil.CreateStudent(t, fix.schoolRepo,
		"Amani", "Okafor", core.NewDate(2015, today.Month(), today.Day()), "Ngozi Okafor", "ngozi@test.cd")
	// born tomorrow; not a celebrant today
	testutil.CreateStudent(t, fix.schoolRepo,
		"Zawadi", "Mwangi", core.NewDate(2014, tomorrow.Month(), tomorrow.Day()), "Wanjiru Mwangi", "wanjiru@test.cd")
	// same birthday but archived
	now := time.Now().UTC()
	_, err := fix.schoolRepo.CreateStudent(ctx, school.Student{
		FirstName:       "Baraka",
		LastName:        "Otieno",
		DateOfBirth:     core.NewDate(2015, today.Month(), today.Day()),
		GuardianName:    "Akinyi Otieno",
		GuardianContact: "akinyi@test.cd",
		Active:          false,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	jobs, err := fix.svc.Schedule(ctx, "Jane Teacher")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Schedule() len = %d; want 1", len(jobs))
	}
	job := jobs[0]
	if job.StudentID != celebrant.ID {
		t.Errorf("Schedule() studentID = %d; want %d", job.StudentID, celebrant.ID)
	}
	if job.Status != birthday.JobPending {
		t.Errorf("Schedule() status = %q; want %q", job.Status, birthday.JobPending)
	}
	wantAt := time.Date(today.Year(), today.Month(), today.Day(), 7, 30, 0, 0, fix.conf.Location())
	if !job.ScheduledFor.Equal(wantAt) {
		t.Errorf("Schedule() scheduledFor = %v; want %v", job.ScheduledFor, wantAt)
	}
	// the subject greets by first name, the body by full name
	if !strings.Contains(job.Subject, "Amani") || strings.Contains(job.Subject, "Okafor") {
		t.Errorf("Schedule() subject = %q", job.Subject)
	}
	for _, want := range []string{"Amani Okafor", "Primary Class", "Jane Teacher"} {
		if !strings.Contains(job.Body, want) {
			t.Errorf("Schedule() body = %q; missing %q", job.Body, want)
		}
	}

	// a second run on the same day schedules a fresh batch
	if _, err = fix.svc.Schedule(ctx, "Jane Teacher"); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	all, err := fix.svc.Jobs(ctx)
	if err != nil {
		t.Fatalf("Jobs() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Jobs() len = %d; want 2", len(all))
	}
}

func TestService_Dispatch(t *testing.T) {
	fix := newBirthdayFixture(t)
	ctx := context.Background()
	emailsvc.ClearSentMessages()

	reachable := testutil.CreateStudent(t, fix.schoolRepo,
		"Amani", "Okafor", core.NewDate(2015, time.March, 10), "Ngozi Okafor", "ngozi@test.cd")
	phoneOnly := testutil.CreateStudent(t, fix.schoolRepo,
		"Zawadi", "Mwangi", core.NewDate(2014, time.November, 22), "Wanjiru Mwangi", "0812 345 678")

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	newJob := func(studentID int, scheduledFor time.Time) birthday.EmailJob {
		job, err := fix.birthdayRepo.CreateEmailJob(ctx, birthday.EmailJob{
			StudentID:    studentID,
			ScheduledFor: scheduledFor,
			Status:       birthday.JobPending,
			Subject:      "Happy Birthday!",
			Body:         "Have a great day.",
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			t.Fatalf("CreateEmailJob() failed: %v", err)
		}
		return job
	}
	newJob(reachable.ID, past)
	newJob(phoneOnly.ID, past)
	// student is gone
	newJob(reachable.ID+99, past)
	// not due yet
	future := newJob(reachable.ID, now.Add(time.Hour))

	dispatched, err := fix.svc.Dispatch(ctx)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(dispatched) != 3 {
		t.Fatalf("Dispatch() len = %d; want 3", len(dispatched))
	}

	byStudent := make(map[int]birthday.EmailJob, len(dispatched))
	for _, job := range dispatched {
		byStudent[job.StudentID] = job
	}
	if job := byStudent[reachable.ID]; job.Status != birthday.JobSent || job.LastError.Valid {
		t.Errorf("Dispatch() job = %+v; want sent", job)
	}
	if job := byStudent[phoneOnly.ID]; job.Status != birthday.JobFailed ||
		job.LastError.String != "guardian contact is not an email address" {
		t.Errorf("Dispatch() job = %+v; want failed on contact", job)
	}
	if job := byStudent[reachable.ID+99]; job.Status != birthday.JobFailed ||
		job.LastError.String != "student no longer exists" {
		t.Errorf("Dispatch() job = %+v; want failed on missing student", job)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("SentMessages len = %d; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if len(msg.To) != 1 || msg.To[0].Address != "ngozi@test.cd" || msg.To[0].Name != "Ngozi Okafor" {
		t.Errorf("SentMessages[0].To = %+v", msg.To)
	}
	if msg.Subject != "Happy Birthday!" || msg.TextContent != "Have a great day." {
		t.Errorf("SentMessages[0] = %+v", msg)
	}

	// the future job was left alone
	all, err := fix.svc.Jobs(ctx)
	if err != nil {
		t.Fatalf("Jobs() error = %v", err)
	}
	for _, job := range all {
		if job.ID == future.ID && job.Status != birthday.JobPending {
			t.Errorf("Dispatch() touched a future job: %+v", job)
		}
	}
}
