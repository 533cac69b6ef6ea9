package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// find must be called with the lock held.
func (repo *attendanceRepository) find(key attendance.Key) *attendance.Attendance {
	for _, att := range repo.db.attendance {
		if att.ClassID == key.ClassID && att.StudentID == key.StudentID && att.Date.Equal(key.Date) {
			return att
		}
	}
	return nil
}

func (repo *attendanceRepository) BulkUpsert(ctx context.Context, records []attendance.Record) ([]attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	keys := make(map[attendance.Key]struct{}, len(records))
	for _, rec := range records {
		if att := repo.find(rec.Key()); att != nil {
			*att = rec.Apply(*att, now)
		} else {
			row := rec.Row(now)
			row.ID = repo.db.nextPK()
			repo.db.attendance[row.ID] = &row
		}
		keys[rec.Key()] = struct{}{}
	}

	rows := make([]attendance.Attendance, 0, len(keys))
	for key := range keys {
		if att := repo.find(key); att != nil {
			rows = append(rows, *att)
		}
	}
	return rows, nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, key attendance.Key) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att := repo.find(key); att != nil {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]attendance.Attendance, 0)
	for _, att := range repo.db.attendance {
		if att.ClassID != filter.ClassID {
			continue
		}
		if !filter.StartDate.IsZero() && att.Date.Before(filter.StartDate.Time) {
			continue
		}
		if !filter.EndDate.IsZero() && att.Date.After(filter.EndDate.Time) {
			continue
		}
		rows = append(rows, *att)
	}
	sortByDateDesc(rows)
	return rows, nil
}

func (repo *attendanceRepository) LastRecords(ctx context.Context, classID, limit int) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]attendance.Attendance, 0)
	for _, att := range repo.db.attendance {
		if att.ClassID == classID {
			rows = append(rows, *att)
		}
	}
	sortByDateDesc(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (repo *attendanceRepository) ExportRows(ctx context.Context, classID int, start, end core.Date) ([]attendance.ExportRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]attendance.ExportRow, 0)
	for _, att := range repo.db.attendance {
		if att.ClassID != classID || att.Date.Before(start.Time) || att.Date.After(end.Time) {
			continue
		}
		row := attendance.ExportRow{Date: att.Date, Status: att.Status, Note: att.Note}
		if cls, ok := repo.db.classes[att.ClassID]; ok {
			row.Class = cls.Name
		}
		if std, ok := repo.db.students[att.StudentID]; ok {
			row.Student = std.FullName()
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date.Time)
		}
		return rows[i].Student < rows[j].Student
	})
	return rows, nil
}

func (repo *attendanceRepository) CountByStatusOn(ctx context.Context, day core.Date) (map[attendance.Status]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[attendance.Status]int)
	for _, att := range repo.db.attendance {
		if att.Date.Equal(day) {
			counts[att.Status]++
		}
	}
	return counts, nil
}

func (repo *attendanceRepository) CountByClassAndStatus(ctx context.Context) ([]attendance.StatusCount, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	byKey := make(map[attendance.StatusCount]int)
	for _, att := range repo.db.attendance {
		byKey[attendance.StatusCount{ClassID: att.ClassID, Status: att.Status}]++
	}
	counts := make([]attendance.StatusCount, 0, len(byKey))
	for key, cnt := range byKey {
		key.Count = cnt
		counts = append(counts, key)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].ClassID != counts[j].ClassID {
			return counts[i].ClassID < counts[j].ClassID
		}
		return counts[i].Status < counts[j].Status
	})
	return counts, nil
}

func sortByDateDesc(rows []attendance.Attendance) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date.Time)
		}
		return rows[i].ID > rows[j].ID
	})
}
