package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/birthday"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

type birthdayApi struct {
	svc        *birthday.Service
	settingSvc *setting.Service
	userSvc    *user.Service
	validate   *validator.Validate
}

func registerBirthdayAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := birthdayApi{
		svc:        opts.BirthdaySvc,
		settingSvc: opts.SettingSvc,
		userSvc:    opts.UserSvc,
		validate:   opts.Validate,
	}

	bg := g.Group("/birthdays", jwt)
	bg.POST("/run", api.run)
	bg.POST("/dispatch", api.dispatch)
	bg.GET("/jobs", api.jobs)

	sg := g.Group("/settings", jwt)
	sg.GET("/birthday-template", api.template)
	sg.PUT("", api.upsertSetting)
	sg.GET("/:key", api.retrieveSetting)
}

// Handlers

// run schedules greetings for today's celebrants, signed by the calling teacher.
func (api *birthdayApi) run(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	jobs, err := api.svc.Schedule(ctx.Request().Context(), usr.FullName)
	if err != nil {
		return errors.Wrap(err, "scheduling birthday emails")
	}
	return ctx.JSON(http.StatusCreated, jobs)
}

func (api *birthdayApi) dispatch(ctx echo.Context) error {
	jobs, err := api.svc.Dispatch(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "dispatching birthday emails")
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *birthdayApi) jobs(ctx echo.Context) error {
	jobs, err := api.svc.Jobs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying email jobs")
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *birthdayApi) template(ctx echo.Context) error {
	tpl, err := api.svc.Template(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "resolving birthday template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *birthdayApi) upsertSetting(ctx echo.Context) error {
	var data setting.NewSetting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSetting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.settingSvc.Upsert(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting setting")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *birthdayApi) retrieveSetting(ctx echo.Context) error {
	st, err := api.settingSvc.Get(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}
