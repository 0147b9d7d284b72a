package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/ccnmtl/videoanalytics/apps/api/echo"
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

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newNamedLogger(conf *core.Config, name string) core.Logger {
	zl, err := logsvc.NewZapLogger(conf.Env, conf.Debug)
	if err != nil {
		log.Fatalf("creating %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named(name), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newNamedLogger(conf, "API")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newNamedLogger(conf, "DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, loggerParam.Logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newProgressService(conf *core.Config, users *user.Service, trees *pagetree.Service, quizzes *quiz.Service) *progress.Service {
	return progress.NewService(users, trees, quizzes, conf.Location())
}

func newReport(users *user.Service, prog *progress.Service, trees *pagetree.Service, blocks *block.Service, quizzes *quiz.Service, videos *video.Service) *report.Report {
	return report.New(report.Deps{
		Users:    users,
		Profiles: users,
		Progress: prog,
		Trees:    trees,
		Blocks:   blocks,
		Quizzes:  quizzes,
		Views:    videos,
	})
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    *user.Service
	PageTree   *pagetree.Service
	Blocks     *block.Service
	Quizzes    *quiz.Service
	Videos     *video.Service
	Progress   *progress.Service
	Report     *report.Report
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		PageTree:   p.PageTree,
		Blocks:     p.Blocks,
		Quizzes:    p.Quizzes,
		Videos:     p.Videos,
		Progress:   p.Progress,
		Report:     p.Report,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewPageTreeRepository, dig.As(new(pagetree.Repository))))
	must(c.Provide(sqlxrepos.NewBlockRepository, dig.As(new(block.Repository))))
	must(c.Provide(sqlxrepos.NewQuizRepository, dig.As(new(quiz.Repository))))
	must(c.Provide(sqlxrepos.NewVideoRepository, dig.As(new(video.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(pagetree.NewService))
	must(c.Provide(quiz.NewService))
	must(c.Provide(func(repo block.Repository, quizzes *quiz.Service) *block.Service {
		return block.NewService(repo, quizzes)
	}))
	must(c.Provide(video.NewService))
	must(c.Provide(newProgressService))
	must(c.Provide(newReport))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
