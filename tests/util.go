// Package testutil wires the app on the in memory database for API, CLI & service tests.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	inmemdb "github.com/ccnmtl/videoanalytics/storage/database/inmem"
)

// Env holds every service of the app over a fresh in memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *inmemdb.DB

	UserRepo user.Repository
	MailSvc  core.EmailService
	UserSvc  *user.Service
	PageTree *pagetree.Service
	Blocks   *block.Service
	Quizzes  *quiz.Service
	Videos   *video.Service
	Progress *progress.Service
	Report   *report.Report
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	quizSvc := quiz.NewService(inmemdb.NewQuizRepository(db))
	treeSvc := pagetree.NewService(inmemdb.NewPageTreeRepository(db))
	blockSvc := block.NewService(inmemdb.NewBlockRepository(db), quizSvc)
	videoSvc := video.NewService(inmemdb.NewVideoRepository(db))
	progressSvc := progress.NewService(usrSvc, treeSvc, quizSvc, conf.Location())

	return &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		DB:         db,
		UserRepo:   usrRepo,
		MailSvc:    mailSvc,
		UserSvc:    usrSvc,
		PageTree:   treeSvc,
		Blocks:     blockSvc,
		Quizzes:    quizSvc,
		Videos:     videoSvc,
		Progress:   progressSvc,
		Report: report.New(report.Deps{
			Users:    usrSvc,
			Profiles: usrSvc,
			Progress: progressSvc,
			Trees:    treeSvc,
			Blocks:   blockSvc,
			Quizzes:  quizSvc,
			Views:    videoSvc,
		}),
	}
}

// CreateUser saves an active user along with its profile. Staff users get no research group.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd, group string,
	isStaff bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  true,
		IsStaff:   isStaff,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	ctx := context.Background()
	usr, err := repo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if _, err = repo.CreateProfile(ctx, user.NewProfile(usr, group)); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// LoadHierarchy imports a YAML hierarchy document.
func LoadHierarchy(t *testing.T, env *Env, doc string) *pagetree.Tree {
	d, err := pagetree.DecodeDocument(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadHierarchy() failed: %v", err)
	}
	tree, err := env.PageTree.Import(context.Background(), d, env.Blocks, false)
	if err != nil {
		t.Fatalf("LoadHierarchy() failed: %v", err)
	}
	return tree
}

// LoadHierarchies imports the control, diagnostic & videos hierarchies.
func LoadHierarchies(t *testing.T, env *Env) (a, b, videos *pagetree.Tree) {
	return LoadHierarchy(t, env, HierarchyA), LoadHierarchy(t, env, HierarchyB), LoadHierarchy(t, env, HierarchyVideos)
}

// Find returns the page block of kind placed on the section at path.
func Find(t *testing.T, tree *pagetree.Tree, path string, kind block.Kind) pagetree.PageBlock {
	n, ok := tree.NodeByPath(path)
	if !ok {
		t.Fatalf("Find(): section %q not found in %q", path, tree.Name)
	}
	for _, pb := range n.Blocks {
		if block.Kind(pb.Kind) == kind {
			return pb
		}
	}
	t.Fatalf("Find(): no %s block on %q", kind, path)
	return pagetree.PageBlock{}
}

// Control group hierarchy: two text pages around a video.
const HierarchyA = `
name: a
base_url: /pages/a/
root:
  label: Root
  children:
    - label: Welcome
      slug: welcome
      blocks:
        - kind: text
          content:
            body: Welcome!
    - label: Watch
      slug: watch
      blocks:
        - kind: youtube
          content:
            video_id: vid-a
            title: Control Video
    - label: Goodbye
      slug: goodbye
      blocks:
        - kind: text
          content:
            body: Thanks!
`

// Diagnostic group hierarchy: an assessment quiz, its summary and a video.
const HierarchyB = `
name: b
base_url: /pages/b/
root:
  label: Root
  children:
    - label: Pretest
      slug: pretest
      blocks:
        - kind: quiz
          css_extra: assessment
          content:
            description: Pretest
            questions:
              - text: Is heat energy?
                css_extra: thermodynamics
                answers:
                  - {value: "yes", label: "Yes", correct: true}
                  - {value: "no", label: "No"}
              - text: Does entropy decrease?
                css_extra: thermodynamics
                answers:
                  - {value: "yes", label: "Yes"}
                  - {value: "no", label: "No", correct: true}
              - text: Is rust a redox reaction?
                css_extra: redox_chemistry
                answers:
                  - {value: "yes", label: "Yes", correct: true}
                  - {value: "no", label: "No"}
    - label: Results
      slug: results
      blocks:
        - kind: quiz_summary
          content:
            quiz_class: assessment
    - label: Watch
      slug: watch
      blocks:
        - kind: youtube
          content:
            video_id: vid-b
            title: Diagnostic Video
`

// Videos hierarchy, gated for the diagnostic group until a quiz is submitted.
const HierarchyVideos = `
name: videos
base_url: /pages/videos/
root:
  label: Root
  children:
    - label: Lecture
      slug: lecture
      blocks:
        - kind: youtube
          content:
            video_id: vid-lecture
            title: Lecture
`
