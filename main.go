package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/darasa/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/grade"
	"github.com/trezcool/darasa/core/importer"
	"github.com/trezcool/darasa/core/importlog"
	"github.com/trezcool/darasa/core/institution"
	"github.com/trezcool/darasa/core/student"
	gatewaysvc "github.com/trezcool/darasa/services/gateway"
	logsvc "github.com/trezcool/darasa/services/logger"
	notifiersvc "github.com/trezcool/darasa/services/notifier"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	var notifier core.Notifier = notifiersvc.NewConsoleNotifier(logger)
	if conf.SendgridAPIKey != "" && conf.OpsEmail != "" {
		notifier = notifiersvc.NewEmailNotifier(conf, logger, notifier)
	}

	// the import journal lives in our own DB; fall back to an in-memory
	// journal when none is configured
	var journalRepo importlog.Repository
	if conf.Database.Name != "" {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() { _ = db.Close() }()
		if err = database.Migrate(db); err != nil {
			logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
		journalRepo = sqlxrepos.NewImportLogRepository(db)
	} else {
		logger.Warn("no database configured; the import journal will not survive restarts")
		journalRepo = dummydb.NewImportLogRepository(dummydb.Open())
	}
	journal := importlog.NewService(journalRepo)

	// =========================================================================
	// Upstream Services

	tokens := gatewaysvc.NewTokenSource(conf)
	timeout := conf.Services.Timeout

	enrollClient := gatewaysvc.NewClient(conf.Services.Enrollment, timeout, tokens.Token)
	studentClient := gatewaysvc.NewClient(conf.Services.Student, timeout, tokens.Token)
	instClient := gatewaysvc.NewClient(conf.Services.Institution, timeout, tokens.Token)
	acadClient := gatewaysvc.NewClient(conf.Services.Academic, timeout, tokens.Token)

	enrollGW := gatewaysvc.NewEntityGateway[enrollment.Enrollment](enrollClient, "/api/v1/enrollments")
	studentGW := gatewaysvc.NewEntityGateway[student.Student](studentClient, "/api/v1/students")
	instGW := gatewaysvc.NewEntityGateway[institution.Institution](instClient, "/api/v1/institutions")
	hqGW := gatewaysvc.NewEntityGateway[institution.Headquarter](instClient, "/api/v1/headquarters")
	gradeGW := gatewaysvc.NewEntityGateway[grade.Grade](acadClient, "/api/v1/grades")

	enrollAPI := echoapi.NewEntityAPI[enrollment.Enrollment](
		"enrollments",
		entity.NewList[enrollment.Enrollment]("enrollments", enrollGW, notifier),
		importer.NewPipeline(enrollment.BulkSchema()),
		enrollGW, journal, logger,
	).WithCreate(enrollGW, validate, func() echoapi.CreatePayload { return new(enrollment.NewEnrollment) })
	studentAPI := echoapi.NewEntityAPI[student.Student](
		"students",
		entity.NewList[student.Student]("students", studentGW, notifier),
		importer.NewPipeline(student.BulkSchema()),
		studentGW, journal, logger,
	).WithCreate(studentGW, validate, func() echoapi.CreatePayload { return new(student.NewStudent) })
	instAPI := echoapi.NewEntityAPI[institution.Institution](
		"institutions",
		entity.NewList[institution.Institution]("institutions", instGW, notifier),
		nil, nil, journal, logger,
	).WithCreate(instGW, validate, func() echoapi.CreatePayload { return new(institution.NewInstitution) })
	hqAPI := echoapi.NewEntityAPI[institution.Headquarter](
		"headquarters",
		entity.NewList[institution.Headquarter]("headquarters", hqGW, notifier),
		nil, nil, journal, logger,
	)
	gradeAPI := echoapi.NewEntityAPI[grade.Grade](
		"grades",
		entity.NewList[grade.Grade]("grades", gradeGW, notifier),
		nil, nil, journal, logger,
	)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:    conf.ServerAddress(),
		Debug:      conf.Debug,
		TestMode:   conf.TestMode,
		Logger:     logger,
		Translator: translator,
		Registrars: []echoapi.RouteRegistrar{
			enrollAPI.Register,
			studentAPI.Register,
			instAPI.Register,
			hqAPI.Register,
			gradeAPI.Register,
			echoapi.RegisterImportLogAPI(journal),
		},
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
