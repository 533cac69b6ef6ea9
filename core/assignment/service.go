package assignment

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// QueryAssignments returns assignments ordered by due date; classID=0
		// means all classes.
		QueryAssignments(ctx context.Context, classID int) ([]Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int) error
		QueryAssignmentsDueOn(ctx context.Context, day core.Date) ([]Assignment, error)

		GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID int) ([]Submission, error)
		QuerySubmissionsByStatus(ctx context.Context, status SubmissionStatus) ([]Submission, error)
		CountByAssignmentAndStatus(ctx context.Context) ([]StatusCount, error)
	}

	Service struct {
		repo Repository
	}
)

// StatusCount aggregates submissions per assignment and status.
type StatusCount struct {
	AssignmentID int              `json:"assignment_id" db:"assignment_id"`
	Status       SubmissionStatus `json:"status" db:"status"`
	Count        int              `json:"count" db:"count"`
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	now := nowFunc().UTC()
	asg := Assignment{
		ClassID:   na.ClassID,
		Title:     na.Title,
		DueDate:   na.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if na.Description != "" {
		asg.Description.SetValid(na.Description)
	}
	if na.AttachmentURL != "" {
		asg.AttachmentURL.SetValid(na.AttachmentURL)
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *Service) Query(ctx context.Context, classID int) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, classID)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	asg = ua.Apply(asg)
	asg.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetAssignmentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *Service) DueOn(ctx context.Context, day core.Date) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsDueOn(ctx, day)
}

// UpsertSubmission creates or partially updates the submission keyed on
// (assignment, student). A second upsert with a submitted status never moves
// submitted_at.
func (svc *Service) UpsertSubmission(ctx context.Context, assignmentID int, su SubmissionUpsert) (Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return Submission{}, err
	}

	now := nowFunc().UTC()
	sub, err := svc.repo.GetSubmission(ctx, assignmentID, su.StudentID)
	if err == ErrSubmissionNotFound {
		return svc.repo.CreateSubmission(ctx, su.Row(assignmentID, now))
	}
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.UpdateSubmission(ctx, su.Apply(sub, now))
}

func (svc *Service) QuerySubmissions(ctx context.Context, assignmentID int) ([]Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}

func (svc *Service) LateSubmissions(ctx context.Context) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByStatus(ctx, StatusSubmittedLate)
}

func (svc *Service) CountByAssignmentAndStatus(ctx context.Context) ([]StatusCount, error) {
	return svc.repo.CountByAssignmentAndStatus(ctx)
}

// WriteGradebookCSV streams the `student_id,status,score,submitted_at` export
// for an assignment. Unset scores and timestamps render as empty fields.
func (svc *Service) WriteGradebookCSV(ctx context.Context, w io.Writer, assignmentID int) error {
	subs, err := svc.QuerySubmissions(ctx, assignmentID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"student_id", "status", "score", "submitted_at"}); err != nil {
		return err
	}
	for _, sub := range subs {
		var score, submittedAt string
		if sub.Score.Valid {
			score = strconv.Itoa(sub.Score.Int)
		}
		if sub.SubmittedAt.Valid {
			submittedAt = sub.SubmittedAt.Time.Format(time.RFC3339)
		}
		record := []string{strconv.Itoa(sub.StudentID), string(sub.Status), score, submittedAt}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
