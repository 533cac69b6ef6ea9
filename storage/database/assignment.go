package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Assignments

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	const q = `
INSERT INTO assignments (class_id, title, description, due_date, attachment_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err := repo.db.GetContext(ctx, &asg.ID, q,
		asg.ClassID, asg.Title, asg.Description, asg.DueDate, asg.AttachmentURL, asg.CreatedAt, asg.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, classID int) ([]assignment.Assignment, error) {
	q := "SELECT * FROM assignments ORDER BY due_date, id"
	args := make([]interface{}, 0, 1)
	if classID != 0 {
		q = "SELECT * FROM assignments WHERE class_id = $1 ORDER BY due_date, id"
		args = append(args, classID)
	}
	assignments := make([]assignment.Assignment, 0)
	if err := repo.db.SelectContext(ctx, &assignments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var asg assignment.Assignment
	if err := repo.db.GetContext(ctx, &asg, "SELECT * FROM assignments WHERE id = $1", id); err != nil {
		return assignment.Assignment{}, repo.trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	const q = `
UPDATE assignments
SET title = $1, description = $2, due_date = $3, attachment_url = $4, updated_at = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, q,
		asg.Title, asg.Description, asg.DueDate, asg.AttachmentURL, asg.UpdatedAt, asg.ID)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}

func (repo *assignmentRepository) QueryAssignmentsDueOn(ctx context.Context, day core.Date) ([]assignment.Assignment, error) {
	assignments := make([]assignment.Assignment, 0)
	const q = "SELECT * FROM assignments WHERE due_date = $1 ORDER BY id"
	if err := repo.db.SelectContext(ctx, &assignments, q, day); err != nil {
		return nil, errors.Wrap(err, "querying due assignments")
	}
	return assignments, nil
}

// Submissions

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID int) (assignment.Submission, error) {
	var sub assignment.Submission
	const q = "SELECT * FROM submissions WHERE assignment_id = $1 AND student_id = $2"
	if err := repo.db.GetContext(ctx, &sub, q, assignmentID, studentID); err != nil {
		return assignment.Submission{}, repo.trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return sub, nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	const q = `
INSERT INTO submissions (assignment_id, student_id, status, submitted_at, score, feedback, file_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.GetContext(ctx, &sub.ID, q,
		sub.AssignmentID, sub.StudentID, sub.Status, sub.SubmittedAt, sub.Score,
		sub.Feedback, sub.FileURL, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	const q = `
UPDATE submissions
SET status = $1, submitted_at = $2, score = $3, feedback = $4, file_url = $5, updated_at = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, q,
		sub.Status, sub.SubmittedAt, sub.Score, sub.Feedback, sub.FileURL, sub.UpdatedAt, sub.ID)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID int) ([]assignment.Submission, error) {
	subs := make([]assignment.Submission, 0)
	const q = "SELECT * FROM submissions WHERE assignment_id = $1 ORDER BY student_id"
	if err := repo.db.SelectContext(ctx, &subs, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (repo *assignmentRepository) QuerySubmissionsByStatus(ctx context.Context, status assignment.SubmissionStatus) ([]assignment.Submission, error) {
	subs := make([]assignment.Submission, 0)
	const q = "SELECT * FROM submissions WHERE status = $1 ORDER BY assignment_id, student_id"
	if err := repo.db.SelectContext(ctx, &subs, q, status); err != nil {
		return nil, errors.Wrap(err, "querying submissions by status")
	}
	return subs, nil
}

func (repo *assignmentRepository) CountByAssignmentAndStatus(ctx context.Context) ([]assignment.StatusCount, error) {
	const q = `
SELECT assignment_id, status, COUNT(*) AS count
FROM submissions
GROUP BY assignment_id, status
ORDER BY assignment_id, status`
	counts := make([]assignment.StatusCount, 0)
	if err := repo.db.SelectContext(ctx, &counts, q); err != nil {
		return nil, errors.Wrap(err, "counting submissions")
	}
	return counts, nil
}
