package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core"
)

var (
	ErrNotFound           = errors.New("quiz not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateQuiz saves a quiz along with its questions & answers.
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// GetQuiz returns a quiz with its questions & answers ordered by position.
		GetQuiz(ctx context.Context, id int64) (Quiz, error)

		// CreateSubmission saves a submission along with its responses.
		CreateSubmission(ctx context.Context, s Submission, responses []Response) (Submission, error)
		// LatestSubmission returns the last submission of a user to a quiz, with its responses.
		LatestSubmission(ctx context.Context, quizID, userID int64) (Submission, []Response, error)
		// HasSubmission reports whether the user submitted any quiz.
		HasSubmission(ctx context.Context, userID int64) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Quiz(ctx context.Context, id int64) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

// Quizzes loads the quizzes of ids, in order.
func (svc *Service) Quizzes(ctx context.Context, ids []int64) ([]Quiz, error) {
	quizzes := make([]Quiz, 0, len(ids))
	for _, id := range ids {
		q, err := svc.repo.GetQuiz(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "getting quiz %d", id)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

func (svc *Service) HasSubmission(ctx context.Context, userID int64) (bool, error) {
	ok, err := svc.repo.HasSubmission(ctx, userID)
	return ok, errors.Wrap(err, "checking submissions")
}

// UserResponses returns the responses of the user's latest submission to a quiz. None when never submitted.
func (svc *Service) UserResponses(ctx context.Context, quizID, userID int64) (Responses, error) {
	_, rs, err := svc.repo.LatestSubmission(ctx, quizID, userID)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return Responses{}, nil
		}
		return nil, errors.Wrap(err, "getting latest submission")
	}
	return NewResponses(rs), nil
}

// Submitted reports whether the user ever submitted a quiz.
func (svc *Service) Submitted(ctx context.Context, quizID, userID int64) (bool, error) {
	_, _, err := svc.repo.LatestSubmission(ctx, quizID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Cause(err) == ErrSubmissionNotFound:
		return false, nil
	}
	return false, errors.Wrap(err, "getting latest submission")
}

// ResponsesFor merges the user's responses to every quiz of quizzes.
func (svc *Service) ResponsesFor(ctx context.Context, quizzes []Quiz, userID int64) (Responses, error) {
	all := make(Responses)
	for _, q := range quizzes {
		rs, err := svc.UserResponses(ctx, q.ID, userID)
		if err != nil {
			return nil, err
		}
		for qid, vals := range rs {
			all[qid] = vals
		}
	}
	return all, nil
}

// Submit records the user's answers to a quiz. answers maps question IDs to the submitted values.
// Values for questions that do not belong to the quiz are rejected.
func (svc *Service) Submit(ctx context.Context, quizID, userID int64, answers map[int64][]string) (Submission, error) {
	quiz, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}

	known := make(map[int64]bool, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = true
	}

	responses := make([]Response, 0, len(answers))
	for _, q := range quiz.Questions {
		for _, v := range answers[q.ID] {
			responses = append(responses, Response{QuestionID: q.ID, Value: v})
		}
	}
	for qid := range answers {
		if !known[qid] {
			return Submission{}, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("question%d", qid),
				Error: "question does not belong to this quiz",
			})
		}
	}

	sub := Submission{QuizID: quizID, UserID: userID, Submitted: nowFunc().UTC()}
	sub, err = svc.repo.CreateSubmission(ctx, sub, responses)
	return sub, errors.Wrap(err, "creating submission")
}

// CreateQuizFromDict implements block.QuizStore.
func (svc *Service) CreateQuizFromDict(ctx context.Context, d map[string]interface{}) (int64, error) {
	q, err := QuizFromDict(d)
	if err != nil {
		return 0, err
	}
	q, err = svc.repo.CreateQuiz(ctx, q)
	if err != nil {
		return 0, errors.Wrap(err, "creating quiz")
	}
	return q.ID, nil
}

// QuizAsDict implements block.QuizStore.
func (svc *Service) QuizAsDict(ctx context.Context, id int64) (map[string]interface{}, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	return q.AsDict(), nil
}
