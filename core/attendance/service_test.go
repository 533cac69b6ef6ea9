package attendance_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func newAttendanceService(t *testing.T) (*attendance.Service, *dummydb.DB) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return attendance.NewService(dummydb.NewAttendanceRepository(db)), db
}

func findByStudent(t *testing.T, rows []attendance.Attendance, studentID int) attendance.Attendance {
	for _, row := range rows {
		if row.StudentID == studentID {
			return row
		}
	}
	t.Fatalf("no attendance row for student %d in %+v", studentID, rows)
	return attendance.Attendance{}
}

func TestService_BulkUpsert(t *testing.T) {
	svc, _ := newAttendanceService(t)
	ctx := context.Background()
	day := core.NewDate(2026, time.March, 2)

	note := "sent home sick"
	rows, err := svc.BulkUpsert(ctx, []attendance.Record{
		{ClassID: 1, StudentID: 1, Date: day, Status: attendance.StatusAbsent, Note: &note},
		{ClassID: 1, StudentID: 2, Date: day, Status: attendance.StatusPresent},
	})
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("BulkUpsert() len = %d; want 2", len(rows))
	}
	first := findByStudent(t, rows, 1)
	if first.Status != attendance.StatusAbsent || first.Note.String != note {
		t.Errorf("BulkUpsert() row = %+v", first)
	}

	// correcting a record keeps the stored note when none is sent
	rows, err = svc.BulkUpsert(ctx, []attendance.Record{
		{ClassID: 1, StudentID: 1, Date: day, Status: attendance.StatusLate},
	})
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	updated := findByStudent(t, rows, 1)
	if updated.ID != first.ID {
		t.Errorf("BulkUpsert() created a new row; ID = %d, want %d", updated.ID, first.ID)
	}
	if updated.Status != attendance.StatusLate {
		t.Errorf("BulkUpsert() status = %q; want %q", updated.Status, attendance.StatusLate)
	}
	if updated.Note.String != note {
		t.Errorf("BulkUpsert() note = %q; want %q", updated.Note.String, note)
	}

	// an explicit empty note clears it
	empty := ""
	rows, err = svc.BulkUpsert(ctx, []attendance.Record{
		{ClassID: 1, StudentID: 1, Date: day, Status: attendance.StatusLate, Note: &empty},
	})
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if cleared := findByStudent(t, rows, 1); cleared.Note.Valid {
		t.Errorf("BulkUpsert() note = %+v; want cleared", cleared.Note)
	}

	// repeating a key within one batch applies in order; one row comes back
	rows, err = svc.BulkUpsert(ctx, []attendance.Record{
		{ClassID: 1, StudentID: 3, Date: day, Status: attendance.StatusAbsent},
		{ClassID: 1, StudentID: 3, Date: day, Status: attendance.StatusExcused},
	})
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("BulkUpsert() len = %d; want 1", len(rows))
	}
	if rows[0].Status != attendance.StatusExcused {
		t.Errorf("BulkUpsert() status = %q; want %q", rows[0].Status, attendance.StatusExcused)
	}

	// no records is a no-op
	rows, err = svc.BulkUpsert(ctx, nil)
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("BulkUpsert() len = %d; want 0", len(rows))
	}
}

func TestService_Stats(t *testing.T) {
	svc, _ := newAttendanceService(t)
	ctx := context.Background()

	// a class with no history yields zeroes, not an error
	stats, err := svc.Stats(ctx, 42, 7)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.PresentPct != 0 || len(stats.Trend) != 0 {
		t.Errorf("Stats() = %+v; want zero stats", stats)
	}

	day := func(d int) core.Date { return core.NewDate(2026, time.March, d) }
	seed := []attendance.Record{
		{ClassID: 1, StudentID: 1, Date: day(1), Status: attendance.StatusPresent},
		{ClassID: 1, StudentID: 1, Date: day(2), Status: attendance.StatusAbsent},
		{ClassID: 1, StudentID: 1, Date: day(3), Status: attendance.StatusPresent},
		{ClassID: 1, StudentID: 1, Date: day(4), Status: attendance.StatusLate},
		{ClassID: 1, StudentID: 1, Date: day(5), Status: attendance.StatusPresent},
		{ClassID: 2, StudentID: 2, Date: day(1), Status: attendance.StatusPresent},
		{ClassID: 2, StudentID: 2, Date: day(2), Status: attendance.StatusAbsent},
		{ClassID: 2, StudentID: 2, Date: day(3), Status: attendance.StatusAbsent},
	}
	if _, err = svc.BulkUpsert(ctx, seed); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	// the window covers the N most recent rows: absent, present, late, present
	stats, err = svc.Stats(ctx, 1, 4)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.PresentPct != 50.0 {
		t.Errorf("Stats() presentPct = %v; want 50.0", stats.PresentPct)
	}
	if len(stats.Trend) != 4 {
		t.Fatalf("Stats() trend len = %d; want 4", len(stats.Trend))
	}
	for i := 1; i < len(stats.Trend); i++ {
		if stats.Trend[i].Date.Before(stats.Trend[i-1].Date.Time) {
			t.Errorf("Stats() trend is not ascending: %+v", stats.Trend)
		}
	}
	if !stats.Trend[0].Date.Equal(day(2)) || !stats.Trend[3].Date.Equal(day(5)) {
		t.Errorf("Stats() trend window = %+v; want days 2..5", stats.Trend)
	}

	// percentages are rounded to two decimals
	stats, err = svc.Stats(ctx, 2, 7)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.PresentPct != 33.33 {
		t.Errorf("Stats() presentPct = %v; want 33.33", stats.PresentPct)
	}

	// out-of-range windows fall back to the cap
	stats, err = svc.Stats(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.PresentPct != 60.0 {
		t.Errorf("Stats() presentPct = %v; want 60.0", stats.PresentPct)
	}
	if len(stats.Trend) != 5 {
		t.Errorf("Stats() trend len = %d; want 5", len(stats.Trend))
	}
}

func TestService_WriteCSV(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewAttendanceRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	svc := attendance.NewService(repo)
	ctx := context.Background()

	cls := testutil.CreateClassroom(t, schoolRepo, "Primary Class", "Grade 4", "2026-2027")
	std := testutil.CreateStudent(t, schoolRepo, "Amani", "Okafor", core.NewDate(2015, time.March, 10), "Ngozi Okafor", "ngozi@test.cd")

	note := "arrived at 9am"
	_, err = svc.BulkUpsert(ctx, []attendance.Record{
		{ClassID: cls.ID, StudentID: std.ID, Date: core.NewDate(2026, time.March, 2), Status: attendance.StatusLate, Note: &note},
		{ClassID: cls.ID, StudentID: std.ID, Date: core.NewDate(2026, time.March, 3), Status: attendance.StatusPresent},
		// outside the export range
		{ClassID: cls.ID, StudentID: std.ID, Date: core.NewDate(2026, time.April, 1), Status: attendance.StatusAbsent},
	})
	if err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}

	var buf bytes.Buffer
	err = svc.WriteCSV(ctx, &buf, cls.ID, core.NewDate(2026, time.March, 1), core.NewDate(2026, time.March, 31))
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"class,student,date,status,note",
		"Primary Class,Amani Okafor,2026-03-02,late,arrived at 9am",
		"Primary Class,Amani Okafor,2026-03-03,present,",
	}
	if len(lines) != len(want) {
		t.Fatalf("WriteCSV() lines = %d; want %d\n%s", len(lines), len(want), buf.String())
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("WriteCSV() line %d = %q; want %q", i, lines[i], line)
		}
	}
}
