package inmemdb

import (
	"context"

	"github.com/ccnmtl/videoanalytics/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func copyQuiz(q quiz.Quiz) quiz.Quiz {
	questions := make([]quiz.Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.Answers = append([]quiz.Answer(nil), qu.Answers...)
		questions[i] = qu
	}
	q.Questions = questions
	return q
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q = copyQuiz(q)
	q.ID = repo.db.nextID("quizzes")
	for i := range q.Questions {
		qu := &q.Questions[i]
		qu.ID = repo.db.nextID("questions")
		qu.QuizID = q.ID
		for j := range qu.Answers {
			qu.Answers[j].ID = repo.db.nextID("answers")
			qu.Answers[j].QuestionID = qu.ID
		}
	}
	stored := copyQuiz(q)
	repo.db.quizzes[q.ID] = &stored
	return q, nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id int64) (quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.quizzes[id]; ok {
		return copyQuiz(*q), nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) CreateSubmission(_ context.Context, s quiz.Submission, responses []quiz.Response) (quiz.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = repo.db.nextID("submissions")
	repo.db.submissions[s.ID] = &s

	saved := make([]quiz.Response, 0, len(responses))
	for _, r := range responses {
		r.ID = repo.db.nextID("responses")
		r.SubmissionID = s.ID
		saved = append(saved, r)
	}
	repo.db.responses[s.ID] = saved
	return s, nil
}

func (repo *quizRepository) LatestSubmission(_ context.Context, quizID, userID int64) (quiz.Submission, []quiz.Response, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *quiz.Submission
	for _, s := range repo.db.submissions {
		if s.QuizID != quizID || s.UserID != userID {
			continue
		}
		if latest == nil || s.Submitted.After(latest.Submitted) ||
			(s.Submitted.Equal(latest.Submitted) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return quiz.Submission{}, nil, quiz.ErrSubmissionNotFound
	}
	return *latest, append([]quiz.Response(nil), repo.db.responses[latest.ID]...), nil
}

func (repo *quizRepository) HasSubmission(_ context.Context, userID int64) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.submissions {
		if s.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}
