package assignment_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func newAssignmentService(t *testing.T) (*assignment.Service, assignment.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewAssignmentRepository(db)
	return assignment.NewService(repo), repo
}

func TestService_UpsertSubmission(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	asg := testutil.CreateAssignment(t, repo, 1, "Reading Log", core.NewDate(2026, time.September, 15))

	if _, err := svc.UpsertSubmission(ctx, asg.ID+99, assignment.SubmissionUpsert{StudentID: 1}); err != assignment.ErrNotFound {
		t.Fatalf("UpsertSubmission() error = %v; want ErrNotFound", err)
	}

	// the first touch creates a blank not_submitted row
	sub, err := svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if sub.Status != assignment.StatusNotSubmitted {
		t.Errorf("UpsertSubmission() status = %q; want %q", sub.Status, assignment.StatusNotSubmitted)
	}
	if sub.SubmittedAt.Valid {
		t.Error("UpsertSubmission() stamped submitted_at without a submission")
	}

	// handing in stamps submitted_at exactly once
	submitted := assignment.StatusSubmitted
	sub, err = svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1, Status: &submitted})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if !sub.SubmittedAt.Valid {
		t.Fatal("UpsertSubmission() did not stamp submitted_at")
	}
	submittedAt := sub.SubmittedAt.Time
	firstID := sub.ID

	// grading later never moves the timestamp
	score, feedback := 85, "good work"
	sub, err = svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1, Score: &score, Feedback: &feedback})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if sub.ID != firstID {
		t.Errorf("UpsertSubmission() created a new row; ID = %d, want %d", sub.ID, firstID)
	}
	if sub.Score.Int != 85 || sub.Feedback.String != "good work" {
		t.Errorf("UpsertSubmission() = %+v", sub)
	}
	if !sub.SubmittedAt.Time.Equal(submittedAt) {
		t.Errorf("UpsertSubmission() moved submitted_at: %v -> %v", submittedAt, sub.SubmittedAt.Time)
	}

	// nor does re-submitting with another submitted status
	late := assignment.StatusSubmittedLate
	sub, err = svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1, Status: &late})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if sub.Status != assignment.StatusSubmittedLate {
		t.Errorf("UpsertSubmission() status = %q; want %q", sub.Status, assignment.StatusSubmittedLate)
	}
	if !sub.SubmittedAt.Time.Equal(submittedAt) {
		t.Errorf("UpsertSubmission() moved submitted_at: %v -> %v", submittedAt, sub.SubmittedAt.Time)
	}
}

func TestService_LateSubmissions(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	asg := testutil.CreateAssignment(t, repo, 1, "Reading Log", core.NewDate(2026, time.September, 15))

	submitted, late := assignment.StatusSubmitted, assignment.StatusSubmittedLate
	if _, err := svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1, Status: &submitted}); err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	lateSub, err := svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 2, Status: &late})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}

	lates, err := svc.LateSubmissions(ctx)
	if err != nil {
		t.Fatalf("LateSubmissions() error = %v", err)
	}
	if len(lates) != 1 || lates[0].ID != lateSub.ID {
		t.Errorf("LateSubmissions() = %+v; want just the late one", lates)
	}
}

func TestService_WriteGradebookCSV(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	asg := testutil.CreateAssignment(t, repo, 1, "Reading Log", core.NewDate(2026, time.September, 15))

	submitted := assignment.StatusSubmitted
	score := 85
	graded, err := svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1, Status: &submitted, Score: &score})
	if err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if _, err = svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 2}); err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}

	var buf bytes.Buffer
	if err = svc.WriteGradebookCSV(ctx, &buf, asg.ID); err != nil {
		t.Fatalf("WriteGradebookCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"student_id,status,score,submitted_at",
		"1,submitted,85," + graded.SubmittedAt.Time.Format(time.RFC3339),
		"2,not_submitted,,",
	}
	if len(lines) != len(want) {
		t.Fatalf("WriteGradebookCSV() lines = %d; want %d\n%s", len(lines), len(want), buf.String())
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("WriteGradebookCSV() line %d = %q; want %q", i, lines[i], line)
		}
	}

	if err = svc.WriteGradebookCSV(ctx, &buf, asg.ID+99); err != assignment.ErrNotFound {
		t.Errorf("WriteGradebookCSV() error = %v; want ErrNotFound", err)
	}
}

func TestService_DeleteCascadesSubmissions(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	asg := testutil.CreateAssignment(t, repo, 1, "Reading Log", core.NewDate(2026, time.September, 15))

	if _, err := svc.UpsertSubmission(ctx, asg.ID, assignment.SubmissionUpsert{StudentID: 1}); err != nil {
		t.Fatalf("UpsertSubmission() error = %v", err)
	}
	if err := svc.Delete(ctx, asg.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetByID(ctx, asg.ID); err != assignment.ErrNotFound {
		t.Errorf("GetByID() error = %v; want ErrNotFound", err)
	}
	if _, err := repo.GetSubmission(ctx, asg.ID, 1); err != assignment.ErrSubmissionNotFound {
		t.Errorf("GetSubmission() error = %v; want ErrSubmissionNotFound", err)
	}
}
