package main

import (
	"context"
	"log"
	"os"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/progress"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	"github.com/ccnmtl/videoanalytics/core/report"
	"github.com/ccnmtl/videoanalytics/core/user"
	"github.com/ccnmtl/videoanalytics/core/video"
	emailsvc "github.com/ccnmtl/videoanalytics/services/email"
	logsvc "github.com/ccnmtl/videoanalytics/services/logger"
	"github.com/ccnmtl/videoanalytics/storage/database"
	sqlxrepos "github.com/ccnmtl/videoanalytics/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf.Env, conf.Debug)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	rbLogger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	rbLogger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer rbLogger.Sync()
	logger = rbLogger

	core.ParseEmailTemplates(conf, logger)

	// set up DB
	db, err := database.Open(context.Background(), conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.InitGoose(logger))

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db))
	treeSvc := pagetree.NewService(sqlxrepos.NewPageTreeRepository(db))
	blockSvc := block.NewService(sqlxrepos.NewBlockRepository(db), quizSvc)
	videoSvc := video.NewService(sqlxrepos.NewVideoRepository(db))
	progressSvc := progress.NewService(usrSvc, treeSvc, quizSvc, conf.Location())

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
		trees:   treeSvc,
		blocks:  blockSvc,
		report: report.New(report.Deps{
			Users:    usrSvc,
			Profiles: usrSvc,
			Progress: progressSvc,
			Trees:    treeSvc,
			Blocks:   blockSvc,
			Quizzes:  quizSvc,
			Views:    videoSvc,
		}),
		mailSvc: mailSvc,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		rbLogger.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
