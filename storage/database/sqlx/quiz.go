package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/quiz"
)

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ins := psql.Insert("quizzes").Columns("description", "rhetorical").
			Values(q.Description, q.Rhetorical).
			Suffix("RETURNING id")
		if err := get(ctx, tx, &q.ID, ins); err != nil {
			return errors.Wrap(err, "inserting quiz")
		}

		for i := range q.Questions {
			qu := &q.Questions[i]
			qu.QuizID = q.ID
			ins = psql.Insert("questions").
				Columns("quiz_id", "position", "question_type", "text", "intro_text", "explanation", "css_extra").
				Values(qu.QuizID, qu.Position, qu.Type, qu.Text, qu.IntroText, qu.Explanation, qu.CSSExtra).
				Suffix("RETURNING id")
			if err := get(ctx, tx, &qu.ID, ins); err != nil {
				return errors.Wrap(err, "inserting question")
			}

			for j := range qu.Answers {
				a := &qu.Answers[j]
				a.QuestionID = qu.ID
				ins = psql.Insert("answers").
					Columns("question_id", "position", "value", "label", "correct").
					Values(a.QuestionID, a.Position, a.Value, a.Label, a.Correct).
					Suffix("RETURNING id")
				if err := get(ctx, tx, &a.ID, ins); err != nil {
					return errors.Wrap(err, "inserting answer")
				}
			}
		}
		return nil
	})
	if err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error) {
	var q quiz.Quiz
	sel := psql.Select("id", "description", "rhetorical").From("quizzes").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &q, sel); err != nil {
		return quiz.Quiz{}, trapNoRows(err, quiz.ErrNotFound, "finding quiz")
	}

	sel = psql.Select("id", "quiz_id AS quizid", "position", "question_type AS type", "text",
		"intro_text AS introtext", "explanation", "css_extra AS cssextra").
		From("questions").
		Where(sq.Eq{"quiz_id": id}).
		OrderBy("position", "id")
	if err := selectAll(ctx, repo.db, &q.Questions, sel); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "querying questions")
	}

	var answers []quiz.Answer
	sel = psql.Select("a.id", "a.question_id AS questionid", "a.position", "a.value", "a.label", "a.correct").
		From("answers a").
		Join("questions q ON q.id = a.question_id").
		Where(sq.Eq{"q.quiz_id": id}).
		OrderBy("a.position", "a.id")
	if err := selectAll(ctx, repo.db, &answers, sel); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "querying answers")
	}

	byQuestion := make(map[int64]int, len(q.Questions))
	for i, qu := range q.Questions {
		byQuestion[qu.ID] = i
	}
	for _, a := range answers {
		i := byQuestion[a.QuestionID]
		q.Questions[i].Answers = append(q.Questions[i].Answers, a)
	}
	return q, nil
}

func (repo *quizRepository) CreateSubmission(ctx context.Context, s quiz.Submission, responses []quiz.Response) (quiz.Submission, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ins := psql.Insert("submissions").Columns("quiz_id", "user_id", "submitted").
			Values(s.QuizID, s.UserID, s.Submitted.UTC()).
			Suffix("RETURNING id")
		if err := get(ctx, tx, &s.ID, ins); err != nil {
			return errors.Wrap(err, "inserting submission")
		}
		if len(responses) == 0 {
			return nil
		}

		ins = psql.Insert("responses").Columns("submission_id", "question_id", "value")
		for _, r := range responses {
			ins = ins.Values(s.ID, r.QuestionID, r.Value)
		}
		if _, err := exec(ctx, tx, ins); err != nil {
			return errors.Wrap(err, "inserting responses")
		}
		return nil
	})
	if err != nil {
		return quiz.Submission{}, err
	}
	return s, nil
}

func (repo *quizRepository) LatestSubmission(ctx context.Context, quizID, userID int64) (quiz.Submission, []quiz.Response, error) {
	var s quiz.Submission
	sel := psql.Select("id", "quiz_id AS quizid", "user_id AS userid", "submitted").
		From("submissions").
		Where(sq.Eq{"quiz_id": quizID, "user_id": userID}).
		OrderBy("submitted DESC", "id DESC").
		Limit(1)
	if err := get(ctx, repo.db, &s, sel); err != nil {
		return quiz.Submission{}, nil, trapNoRows(err, quiz.ErrSubmissionNotFound, "finding submission")
	}
	s.Submitted = s.Submitted.UTC()

	var responses []quiz.Response
	sel = psql.Select("id", "submission_id AS submissionid", "question_id AS questionid", "value").
		From("responses").
		Where(sq.Eq{"submission_id": s.ID}).
		OrderBy("id")
	if err := selectAll(ctx, repo.db, &responses, sel); err != nil {
		return quiz.Submission{}, nil, errors.Wrap(err, "querying responses")
	}
	return s, responses, nil
}

func (repo *quizRepository) HasSubmission(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	sel := psql.Select().Column(sq.Expr("EXISTS (SELECT 1 FROM submissions WHERE user_id = ?)", userID))
	if err := get(ctx, repo.db, &exists, sel); err != nil {
		return false, errors.Wrap(err, "checking submissions")
	}
	return exists, nil
}
