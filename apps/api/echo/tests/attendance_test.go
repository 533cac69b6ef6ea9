package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_attendanceApi(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Jane Teacher", "jane@test.cd", "s3cretpwd", false)
	token := getToken(t, usr)

	cls := testutil.CreateClassroom(t, schoolRepo, "Primary Class", "Grade 4", "2026-2027")
	std := testutil.CreateStudent(t, schoolRepo, "Amani", "Okafor", core.NewDate(2015, time.March, 10), "Ngozi Okafor", "ngozi@test.cd")

	day := func(d int) core.Date { return core.NewDate(2026, time.March, d) }

	t.Run("bulk upsert", func(t *testing.T) {
		note := "sent home sick"
		body := marchallList(t,
			attendance.Record{ClassID: cls.ID, StudentID: std.ID, Date: day(2), Status: attendance.StatusAbsent, Note: &note},
			attendance.Record{ClassID: cls.ID, StudentID: std.ID, Date: day(3), Status: attendance.StatusPresent},
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var rows []attendance.Attendance
		decodeObj(t, rec.Body.Bytes(), &rows)
		if len(rows) != 2 {
			t.Errorf("bulk upsert rows = %d; want 2", len(rows))
		}
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		body := marchallList(t,
			attendance.Record{ClassID: cls.ID, StudentID: std.ID, Date: day(4), Status: "vanished"},
		)
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v\n%s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("query requires class_id", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "class_id is required"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("query by date range", func(t *testing.T) {
		path := fmt.Sprintf("/v1/attendance?class_id=%d&start_date=2026-03-03&end_date=2026-03-31", cls.ID)
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var rows []attendance.Attendance
		decodeObj(t, rec.Body.Bytes(), &rows)
		if len(rows) != 1 || !rows[0].Date.Equal(day(3)) {
			t.Errorf("query rows = %+v; want just 2026-03-03", rows)
		}
	})

	t.Run("stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/classes/%d/attendance/stats", cls.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var stats attendance.Stats
		decodeObj(t, rec.Body.Bytes(), &stats)
		if stats.PresentPct != 50.0 {
			t.Errorf("stats presentPct = %v; want 50.0", stats.PresentPct)
		}
		if len(stats.Trend) != 2 {
			t.Errorf("stats trend len = %d; want 2", len(stats.Trend))
		}
	})

	t.Run("stats days must be numeric", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "days must be numeric"})}
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/classes/%d/attendance/stats?days=lots", cls.ID), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("export requires a date range", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "start_date and end_date are required"})}
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/attendance/export?class_id=%d", cls.ID), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("export", func(t *testing.T) {
		path := fmt.Sprintf("/v1/attendance/export?class_id=%d&start_date=2026-03-01&end_date=2026-03-31", cls.ID)
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q; want text/csv", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
			t.Errorf("Content-Disposition = %q", cd)
		}

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		want := []string{
			"class,student,date,status,note",
			"Primary Class,Amani Okafor,2026-03-02,absent,sent home sick",
			"Primary Class,Amani Okafor,2026-03-03,present,",
		}
		if len(lines) != len(want) {
			t.Fatalf("export lines = %d; want %d\n%s", len(lines), len(want), rec.Body.String())
		}
		for i, line := range want {
			if lines[i] != line {
				t.Errorf("export line %d = %q; want %q", i, lines[i], line)
			}
		}
	})
}
