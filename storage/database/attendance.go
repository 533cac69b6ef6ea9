package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const getAttendanceSQL = "SELECT * FROM attendance WHERE class_id = $1 AND student_id = $2 AND date = $3"

func (repo *attendanceRepository) BulkUpsert(ctx context.Context, records []attendance.Record) ([]attendance.Attendance, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "starting bulk upsert")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	keys := make(map[attendance.Key]struct{}, len(records))
	for _, rec := range records {
		var att attendance.Attendance
		err = tx.GetContext(ctx, &att, getAttendanceSQL, rec.ClassID, rec.StudentID, rec.Date)
		switch err {
		case nil:
			att = rec.Apply(att, now)
			const q = "UPDATE attendance SET status = $1, note = $2, updated_at = $3 WHERE id = $4"
			if _, err = tx.ExecContext(ctx, q, att.Status, att.Note, att.UpdatedAt, att.ID); err != nil {
				return nil, errors.Wrap(err, "updating attendance")
			}
		case sql.ErrNoRows:
			att = rec.Row(now)
			const q = `
INSERT INTO attendance (class_id, student_id, date, status, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
			if _, err = tx.ExecContext(ctx, q,
				att.ClassID, att.StudentID, att.Date, att.Status, att.Note, att.CreatedAt, att.UpdatedAt); err != nil {
				return nil, errors.Wrap(err, "inserting attendance")
			}
		default:
			return nil, errors.Wrap(err, "finding attendance")
		}
		keys[rec.Key()] = struct{}{}
	}

	rows := make([]attendance.Attendance, 0, len(keys))
	for key := range keys {
		var att attendance.Attendance
		if err = tx.GetContext(ctx, &att, getAttendanceSQL, key.ClassID, key.StudentID, key.Date); err != nil {
			return nil, errors.Wrap(err, "reading attendance back")
		}
		rows = append(rows, att)
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing bulk upsert")
	}
	return rows, nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, key attendance.Key) (attendance.Attendance, error) {
	var att attendance.Attendance
	if err := repo.db.GetContext(ctx, &att, getAttendanceSQL, key.ClassID, key.StudentID, key.Date); err != nil {
		return attendance.Attendance{}, repo.trapNoRowsErr(err, "finding attendance")
	}
	return att, nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	q := "SELECT * FROM attendance WHERE class_id = $1"
	args := []interface{}{filter.ClassID}
	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		q += " AND date >= $2"
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		if len(args) == 2 {
			q += " AND date <= $2"
		} else {
			q += " AND date <= $3"
		}
	}
	q += " ORDER BY date DESC, id DESC"

	rows := make([]attendance.Attendance, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return rows, nil
}

func (repo *attendanceRepository) LastRecords(ctx context.Context, classID, limit int) ([]attendance.Attendance, error) {
	const q = "SELECT * FROM attendance WHERE class_id = $1 ORDER BY date DESC, id DESC LIMIT $2"
	rows := make([]attendance.Attendance, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, classID, limit); err != nil {
		return nil, errors.Wrap(err, "querying recent attendance")
	}
	return rows, nil
}

func (repo *attendanceRepository) ExportRows(ctx context.Context, classID int, start, end core.Date) ([]attendance.ExportRow, error) {
	const q = `
SELECT c.name                                AS class,
       s.first_name || ' ' || s.last_name    AS student,
       a.date,
       a.status,
       a.note
FROM attendance a
         JOIN classes c ON c.id = a.class_id
         JOIN students s ON s.id = a.student_id
WHERE a.class_id = $1
  AND a.date BETWEEN $2 AND $3
ORDER BY a.date, s.last_name, s.first_name`
	rows := make([]attendance.ExportRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, classID, start, end); err != nil {
		return nil, errors.Wrap(err, "querying attendance export")
	}
	return rows, nil
}

func (repo *attendanceRepository) CountByStatusOn(ctx context.Context, day core.Date) (map[attendance.Status]int, error) {
	const q = "SELECT status, COUNT(*) AS count FROM attendance WHERE date = $1 GROUP BY status"
	var rows []struct {
		Status attendance.Status `db:"status"`
		Count  int               `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, day); err != nil {
		return nil, errors.Wrap(err, "counting attendance by status")
	}
	counts := make(map[attendance.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (repo *attendanceRepository) CountByClassAndStatus(ctx context.Context) ([]attendance.StatusCount, error) {
	const q = `
SELECT class_id, status, COUNT(*) AS count
FROM attendance
GROUP BY class_id, status
ORDER BY class_id, status`
	counts := make([]attendance.StatusCount, 0)
	if err := repo.db.SelectContext(ctx, &counts, q); err != nil {
		return nil, errors.Wrap(err, "counting attendance by class")
	}
	return counts, nil
}
