package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

// defaultStatsDays is the stats window when the client does not ask for one.
const defaultStatsDays = 7

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := attendanceApi{
		svc:      opts.AttendanceSvc,
		validate: opts.Validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("/bulk", api.bulkUpsert)
	ag.GET("", api.query)
	ag.GET("/export", api.export)

	g.GET("/classes/:id/attendance/stats", api.stats, jwt)
}

// Handlers

func (api *attendanceApi) bulkUpsert(ctx echo.Context) error {
	var records []attendance.Record
	if err := ctx.Bind(&records); err != nil {
		return errors.Wrap(err, "binding to []Record")
	}
	for i := range records {
		if err := records[i].Validate(api.validate); err != nil {
			return err
		}
	}

	rows, err := api.svc.BulkUpsert(ctx.Request().Context(), records)
	if err != nil {
		return errors.Wrap(err, "upserting attendance")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	if filter.StartDate.IsZero() || filter.EndDate.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date and end_date are required")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=attendance_%d.csv", filter.ClassID))
	res.WriteHeader(http.StatusOK)
	return api.svc.WriteCSV(ctx.Request().Context(), res, filter.ClassID, filter.StartDate, filter.EndDate)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	days := defaultStatsDays
	if raw := ctx.QueryParam("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be numeric")
		}
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), id, days)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) bindFilter(ctx echo.Context) (attendance.Filter, error) {
	classID, err := strconv.Atoi(ctx.QueryParam("class_id"))
	if err != nil {
		return attendance.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "class_id is required")
	}
	filter := attendance.Filter{ClassID: classID}

	if raw := ctx.QueryParam("start_date"); raw != "" {
		if filter.StartDate, err = core.ParseDate(raw); err != nil {
			return attendance.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		}
	}
	if raw := ctx.QueryParam("end_date"); raw != "" {
		if filter.EndDate, err = core.ParseDate(raw); err != nil {
			return attendance.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		}
	}
	return filter, nil
}
