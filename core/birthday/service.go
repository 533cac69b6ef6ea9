package birthday

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/setting"
)

// Settings keys overriding the greeting templates. Each falls back to its
// default independently.
const (
	SubjectSettingKey = "birthday_subject"
	BodySettingKey    = "birthday_body"

	DefaultSubject = "Happy Birthday, {{student_name}}! 🎉"
	DefaultBody    = "Dear {{student_name}},\n" +
		"Wishing you a wonderful birthday from {{class_name}}!\n" +
		"Have an amazing year ahead.\n" +
		"— {{teacher_name}}"

	// className fills the {{class_name}} placeholder; the school runs a
	// single class.
	className = "Primary Class"
)

// greetings go out at 07:30 local time
const (
	sendHour   = 7
	sendMinute = 30
)

var (
	// errors
	ErrJobNotFound = errors.New("email job not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEmailJob(ctx context.Context, job EmailJob) (EmailJob, error)
		// QueryEmailJobs returns all jobs ordered by scheduled_for descending.
		QueryEmailJobs(ctx context.Context) ([]EmailJob, error)
		// QueryDueEmailJobs returns pending jobs with scheduled_for <= now.
		QueryDueEmailJobs(ctx context.Context, now time.Time) ([]EmailJob, error)
		UpdateEmailJob(ctx context.Context, job EmailJob) (EmailJob, error)
	}

	// StudentDirectory is the slice of the student roster the scheduler needs.
	StudentDirectory interface {
		ActiveStudentsBornOn(ctx context.Context, month time.Month, day int) ([]school.Student, error)
		GetStudent(ctx context.Context, id int) (school.Student, error)
	}

	Service struct {
		repo     Repository
		settings *setting.Service
		students StudentDirectory
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	settings *setting.Service,
	students StudentDirectory,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		settings: settings,
		students: students,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Template returns the greeting templates, preferring stored settings over
// the defaults. The subject and body fall back independently.
func (svc *Service) Template(ctx context.Context) (Template, error) {
	tpl := Template{Subject: DefaultSubject, Body: DefaultBody}

	st, err := svc.settings.Get(ctx, SubjectSettingKey)
	if err == nil {
		tpl.Subject = st.Value
	} else if err != setting.ErrNotFound {
		return Template{}, err
	}

	st, err = svc.settings.Get(ctx, BodySettingKey)
	if err == nil {
		tpl.Body = st.Value
	} else if err != setting.ErrNotFound {
		return Template{}, err
	}
	return tpl, nil
}

// Schedule creates one pending job, timed at 07:30 local, for every active
// student whose birthday (month and day) is today. Running it twice on the
// same day creates a second batch; callers are expected to run it once daily.
func (svc *Service) Schedule(ctx context.Context, teacherName string) ([]EmailJob, error) {
	tpl, err := svc.Template(ctx)
	if err != nil {
		return nil, err
	}

	today := nowFunc().In(svc.conf.Location())
	celebrants, err := svc.students.ActiveStudentsBornOn(ctx, today.Month(), today.Day())
	if err != nil {
		return nil, err
	}

	scheduledFor := time.Date(
		today.Year(), today.Month(), today.Day(),
		sendHour, sendMinute, 0, 0, svc.conf.Location(),
	)
	now := nowFunc().UTC()

	jobs := make([]EmailJob, 0, len(celebrants))
	for _, std := range celebrants {
		job := EmailJob{
			StudentID:    std.ID,
			ScheduledFor: scheduledFor,
			Status:       JobPending,
			Subject:      renderTemplate(tpl.Subject, std.FirstName, teacherName),
			Body:         renderTemplate(tpl.Body, std.FullName(), teacherName),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		job, err = svc.repo.CreateEmailJob(ctx, job)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Jobs lists all scheduled jobs, most recently scheduled first.
func (svc *Service) Jobs(ctx context.Context) ([]EmailJob, error) {
	return svc.repo.QueryEmailJobs(ctx)
}

// Dispatch sends every due pending job to the student's guardian and flips it
// to sent, or to failed when the guardian contact is not an email address.
// It returns the jobs it touched.
func (svc *Service) Dispatch(ctx context.Context) ([]EmailJob, error) {
	due, err := svc.repo.QueryDueEmailJobs(ctx, nowFunc().UTC())
	if err != nil {
		return nil, err
	}

	dispatched := make([]EmailJob, 0, len(due))
	for _, job := range due {
		std, err := svc.students.GetStudent(ctx, job.StudentID)
		if err != nil {
			job = svc.markFailed(ctx, job, "student no longer exists")
			dispatched = append(dispatched, job)
			continue
		}
		if !strings.Contains(std.GuardianContact, "@") {
			job = svc.markFailed(ctx, job, "guardian contact is not an email address")
			dispatched = append(dispatched, job)
			continue
		}

		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:          []mail.Address{{Name: std.GuardianName, Address: std.GuardianContact}},
			Subject:     job.Subject,
			TextContent: job.Body,
		})

		job.Status = JobSent
		job.LastError.Valid = false
		job.UpdatedAt = nowFunc().UTC()
		if job, err = svc.repo.UpdateEmailJob(ctx, job); err != nil {
			return dispatched, err
		}
		dispatched = append(dispatched, job)
	}
	return dispatched, nil
}

func (svc *Service) markFailed(ctx context.Context, job EmailJob, reason string) EmailJob {
	job.Status = JobFailed
	job.LastError.SetValid(reason)
	job.UpdatedAt = nowFunc().UTC()
	updated, err := svc.repo.UpdateEmailJob(ctx, job)
	if err != nil {
		svc.logger.Error("marking job failed", "job_id", job.ID, "err", err)
		return job
	}
	return updated
}

func renderTemplate(tpl, studentName, teacherName string) string {
	r := strings.NewReplacer(
		"{{student_name}}", studentName,
		"{{class_name}}", className,
		"{{teacher_name}}", teacherName,
	)
	return r.Replace(tpl)
}
