package echoapi

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/school"
)

type dashboardApi struct {
	conf          *core.Config
	schoolSvc     *school.Service
	attendanceSvc *attendance.Service
	assignmentSvc *assignment.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := dashboardApi{
		conf:          opts.Conf,
		schoolSvc:     opts.SchoolSvc,
		attendanceSvc: opts.AttendanceSvc,
		assignmentSvc: opts.AssignmentSvc,
	}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/today", api.today)
	dg.GET("/reports", api.reports)
}

type (
	TodayResponse struct {
		Date           core.Date                 `json:"date"`
		Attendance     map[attendance.Status]int `json:"attendance"`
		AttendancePct  float64                   `json:"attendance_pct"`
		AssignmentsDue []assignment.Assignment   `json:"assignments_due"`
		Birthdays      []string                  `json:"birthdays"`
	}

	ClassAttendanceReport struct {
		ClassID    int     `json:"class_id"`
		Total      int     `json:"total"`
		PresentPct float64 `json:"present_pct"`
	}

	BirthdayCalendarEntry struct {
		Student string    `json:"student"`
		Date    core.Date `json:"date"`
	}

	ReportsResponse struct {
		Attendance       []ClassAttendanceReport  `json:"attendance"`
		Submissions      []assignment.StatusCount `json:"submissions"`
		LateSubmissions  []assignment.Submission  `json:"late_submissions"`
		BirthdayCalendar []BirthdayCalendarEntry  `json:"birthday_calendar"`
	}
)

// Handlers

func (api *dashboardApi) today(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	today := core.DateOf(time.Now().In(api.conf.Location()))

	counts, err := api.attendanceSvc.CountByStatusOn(reqCtx, today)
	if err != nil {
		return errors.Wrap(err, "counting attendance")
	}
	due, err := api.assignmentSvc.DueOn(reqCtx, today)
	if err != nil {
		return errors.Wrap(err, "querying due assignments")
	}
	celebrants, err := api.schoolSvc.ActiveStudentsBornOn(reqCtx, today.Month(), today.Day())
	if err != nil {
		return errors.Wrap(err, "querying birthday students")
	}

	birthdays := make([]string, 0, len(celebrants))
	for _, std := range celebrants {
		birthdays = append(birthdays, std.FullName())
	}
	return ctx.JSON(http.StatusOK, TodayResponse{
		Date:           today,
		Attendance:     counts,
		AttendancePct:  presentPct(counts),
		AssignmentsDue: due,
		Birthdays:      birthdays,
	})
}

// presentPct never divides by zero; a day without records reads as 0%.
func presentPct(counts map[attendance.Status]int) float64 {
	var total int
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		total = 1
	}
	return round2(float64(counts[attendance.StatusPresent]) / float64(total) * 100)
}

func (api *dashboardApi) reports(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	byClass, err := api.attendanceSvc.CountByClassAndStatus(reqCtx)
	if err != nil {
		return errors.Wrap(err, "counting attendance by class")
	}
	submissions, err := api.assignmentSvc.CountByAssignmentAndStatus(reqCtx)
	if err != nil {
		return errors.Wrap(err, "counting submissions")
	}
	late, err := api.assignmentSvc.LateSubmissions(reqCtx)
	if err != nil {
		return errors.Wrap(err, "querying late submissions")
	}
	active := true
	students, err := api.schoolSvc.QueryStudents(reqCtx, school.StudentFilter{Active: &active})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	year := time.Now().In(api.conf.Location()).Year()
	return ctx.JSON(http.StatusOK, ReportsResponse{
		Attendance:       attendanceReports(byClass),
		Submissions:      submissions,
		LateSubmissions:  late,
		BirthdayCalendar: birthdayCalendar(students, year),
	})
}

func attendanceReports(counts []attendance.StatusCount) []ClassAttendanceReport {
	totals := make(map[int]*ClassAttendanceReport)
	order := make([]int, 0)
	present := make(map[int]int)

	for _, cnt := range counts {
		rep, ok := totals[cnt.ClassID]
		if !ok {
			rep = &ClassAttendanceReport{ClassID: cnt.ClassID}
			totals[cnt.ClassID] = rep
			order = append(order, cnt.ClassID)
		}
		rep.Total += cnt.Count
		if cnt.Status == attendance.StatusPresent {
			present[cnt.ClassID] += cnt.Count
		}
	}

	reports := make([]ClassAttendanceReport, 0, len(order))
	for _, classID := range order {
		rep := totals[classID]
		total := rep.Total
		if total == 0 {
			total = 1
		}
		rep.PresentPct = round2(float64(present[classID]) / float64(total) * 100)
		reports = append(reports, *rep)
	}
	return reports
}

// birthdayCalendar projects each birthday onto the given year, in the
// students' (last_name, first_name) order.
func birthdayCalendar(students []school.Student, year int) []BirthdayCalendarEntry {
	calendar := make([]BirthdayCalendarEntry, 0, len(students))
	for _, std := range students {
		calendar = append(calendar, BirthdayCalendarEntry{
			Student: std.FullName(),
			Date:    core.NewDate(year, std.DateOfBirth.Month(), std.DateOfBirth.Day()),
		})
	}
	return calendar
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
