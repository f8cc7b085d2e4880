package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/beasiswa/apps/api/echo"
	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/news"
	"github.com/trezcool/beasiswa/core/portfolio"
	"github.com/trezcool/beasiswa/core/program"
	"github.com/trezcool/beasiswa/core/setting"
	"github.com/trezcool/beasiswa/core/ticket"
	"github.com/trezcool/beasiswa/core/user"
	emailsvc "github.com/trezcool/beasiswa/services/email"
	logsvc "github.com/trezcool/beasiswa/services/logger"
	"github.com/trezcool/beasiswa/services/ratelimit"
	"github.com/trezcool/beasiswa/storage/database"
	sqlxrepos "github.com/trezcool/beasiswa/storage/database/sqlx"
	filestore "github.com/trezcool/beasiswa/storage/files"
)

// waiter is implemented by services that send in the background.
type waiter interface {
	Wait()
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Wait()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	files, err := filestore.NewLocalStorage(conf.Uploads.Dir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up uploads storage: %v", err), err)
	}

	limiter, closeLimiter := ratelimit.New(conf, logger)
	defer func() {
		if err = closeLimiter(); err != nil {
			logger.Error("closing rate limiter", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	if w, ok := mailSvc.(waiter); ok {
		defer w.Wait()
	}

	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), logger)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), activitySvc)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), settingSvc, activitySvc, files, mailSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			Limiter:      limiter,
			UserSvc:      usrSvc,
			SettingSvc:   settingSvc,
			ActivitySvc:  activitySvc,
			PortfolioSvc: portfolio.NewService(sqlxrepos.NewPortfolioRepository(db), activitySvc, conf),
			ProgramSvc:   program.NewService(sqlxrepos.NewProgramRepository(db), activitySvc),
			NewsSvc:      news.NewService(sqlxrepos.NewNewsRepository(db), activitySvc),
			TicketSvc:    ticket.NewService(sqlxrepos.NewTicketRepository(db), activitySvc, files, mailSvc, conf),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
