package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/birthday"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

const shutdownTimeout = 5 * time.Second

func main() {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		stdLogger.Fatalf("loading config: %+v", err)
	}
	validate, translator := core.NewValidator()

	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(stdLogger, conf)
	} else {
		logger = logsvc.NewStdLogger(stdLogger)
	}

	// set up storage
	var (
		usrRepo        user.Repository
		schoolRepo     school.Repository
		attendanceRepo attendance.Repository
		assignmentRepo assignment.Repository
		settingRepo    setting.Repository
		birthdayRepo   birthday.Repository
	)
	if conf.TestMode {
		db, err := dummydb.Open()
		if err != nil {
			logger.Fatal("opening dummy database", err)
		}
		usrRepo = dummydb.NewUserRepository(db)
		schoolRepo = dummydb.NewSchoolRepository(db)
		attendanceRepo = dummydb.NewAttendanceRepository(db)
		assignmentRepo = dummydb.NewAssignmentRepository(db)
		settingRepo = dummydb.NewSettingRepository(db)
		birthdayRepo = dummydb.NewBirthdayRepository(db)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal("creating database", err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer func() { _ = db.Close() }()
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migrating database", err)
		}
		usrRepo = database.NewUserRepository(db)
		schoolRepo = database.NewSchoolRepository(db)
		attendanceRepo = database.NewAttendanceRepository(db)
		assignmentRepo = database.NewAssignmentRepository(db)
		settingRepo = database.NewSettingRepository(db)
		birthdayRepo = database.NewBirthdayRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	switch conf.EmailBackend {
	case "sendgrid":
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	case "smtp":
		mailSvc = emailsvc.NewSMTPService(logger, conf)
	default:
		mailSvc = emailsvc.NewConsoleService(conf)
	}

	usrSvc := user.NewService(usrRepo)
	schoolSvc := school.NewService(schoolRepo)
	attendanceSvc := attendance.NewService(attendanceRepo)
	assignmentSvc := assignment.NewService(assignmentRepo)
	settingSvc := setting.NewService(settingRepo)
	birthdaySvc := birthday.NewService(birthdayRepo, settingSvc, schoolSvc, mailSvc, logger, conf)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:       conf.Server.Address(),
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		SchoolSvc:     schoolSvc,
		AttendanceSvc: attendanceSvc,
		AssignmentSvc: assignmentSvc,
		SettingSvc:    settingSvc,
		BirthdaySvc:   birthdaySvc,
	})

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()
	logger.Info(fmt.Sprintf("API server listening on %s", conf.Server.Address()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server error", err)
	case <-app.ShutdownSignal():
		logger.Warn("integrity issue detected, shutting down")
		stop(app, logger)
	case sig := <-quit:
		logger.Info(fmt.Sprintf("caught signal %v, shutting down", sig))
		stop(app, logger)
	}
}

func stop(app echoapi.Server, logger core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}
