package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/activity"
	"github.com/trezcool/beasiswa/core/setting"
	"github.com/trezcool/beasiswa/core/user"
	emailsvc "github.com/trezcool/beasiswa/services/email"
	logsvc "github.com/trezcool/beasiswa/services/logger"
	"github.com/trezcool/beasiswa/storage/database"
	sqlxrepos "github.com/trezcool/beasiswa/storage/database/sqlx"
	filestore "github.com/trezcool/beasiswa/storage/files"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	files, err := filestore.NewLocalStorage(conf.Uploads.Dir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up uploads storage: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), logger)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), activitySvc)

	// start CLI
	cli := commandLine{
		usrSvc: user.NewService(
			sqlxrepos.NewUserRepository(db), settingSvc, activitySvc, files,
			emailsvc.NewConsoleService(conf, logger), conf,
		),
		settingSvc: settingSvc,
		validate:   validate,
		translator: translator,
		migrate: func(command string, args ...string) error {
			return database.Migrate(db.DB, command, args...)
		},
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
