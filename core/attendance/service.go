package attendance

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
)

// MaxStatsDays caps the attendance stats window. The window is counted in
// rows, not distinct days: several students marked on the same day each
// consume one slot.
const MaxStatsDays = 30

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// BulkUpsert applies the records in order within one transaction
		// (Record.Row / Record.Apply hold the merge semantics), then re-reads
		// and returns the rows for the distinct keys touched. Output order
		// carries no relation to input order.
		BulkUpsert(ctx context.Context, records []Record) ([]Attendance, error)
		GetAttendance(ctx context.Context, key Key) (Attendance, error)
		// QueryAttendance returns matching rows ordered by date descending.
		QueryAttendance(ctx context.Context, filter Filter) ([]Attendance, error)
		// LastRecords returns the `limit` most-recently-dated rows of a class.
		LastRecords(ctx context.Context, classID, limit int) ([]Attendance, error)
		// ExportRows joins class and student names for the CSV export.
		ExportRows(ctx context.Context, classID int, start, end core.Date) ([]ExportRow, error)
		CountByStatusOn(ctx context.Context, day core.Date) (map[Status]int, error)
		CountByClassAndStatus(ctx context.Context) ([]StatusCount, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) BulkUpsert(ctx context.Context, records []Record) ([]Attendance, error) {
	if len(records) == 0 {
		return []Attendance{}, nil
	}
	return svc.repo.BulkUpsert(ctx, records)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Attendance, error) {
	return svc.repo.QueryAttendance(ctx, filter)
}

// Stats computes the present percentage over the class's last `days` rows and
// an ascending-by-date trend. An empty history yields {0.0, []}.
func (svc *Service) Stats(ctx context.Context, classID, days int) (Stats, error) {
	if days <= 0 || days > MaxStatsDays {
		days = MaxStatsDays
	}
	records, err := svc.repo.LastRecords(ctx, classID, days)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Trend: []TrendPoint{}}
	if len(records) == 0 {
		return stats, nil
	}

	var present int
	for _, r := range records {
		if r.Status == StatusPresent {
			present++
		}
	}
	stats.PresentPct = round2(float64(present) / float64(len(records)) * 100)

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date.Time) })
	for _, r := range records {
		stats.Trend = append(stats.Trend, TrendPoint{Date: r.Date, Status: r.Status})
	}
	return stats, nil
}

// WriteCSV streams the `class,student,date,status,note` export for a class
// over [start, end].
func (svc *Service) WriteCSV(ctx context.Context, w io.Writer, classID int, start, end core.Date) error {
	rows, err := svc.repo.ExportRows(ctx, classID, start, end)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"class", "student", "date", "status", "note"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Class, row.Student, row.Date.String(), string(row.Status), row.Note.String}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (svc *Service) CountByStatusOn(ctx context.Context, day core.Date) (map[Status]int, error) {
	return svc.repo.CountByStatusOn(ctx, day)
}

func (svc *Service) CountByClassAndStatus(ctx context.Context) ([]StatusCount, error) {
	return svc.repo.CountByClassAndStatus(ctx)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
