package quiz

import "time"

// Question types
const (
	SingleChoice   = "single choice"
	MultipleChoice = "multiple choice"
	ShortText      = "short text"
	LongText       = "long text"
)

type Quiz struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Rhetorical  bool       `json:"rhetorical"`
	Questions   []Question `json:"questions"` // ordered by position
}

// NeedsSubmit reports whether the quiz must be submitted to complete its page.
func (q Quiz) NeedsSubmit() bool { return !q.Rhetorical }

type Question struct {
	ID          int64    `json:"id"`
	QuizID      int64    `json:"quiz_id"`
	Position    int      `json:"position"`
	Type        string   `json:"question_type"`
	Text        string   `json:"text"`
	IntroText   string   `json:"intro_text"`
	Explanation string   `json:"explanation"`
	CSSExtra    string   `json:"css_extra"` // category, eg: thermodynamics
	Answers     []Answer `json:"answers"`   // ordered by position
}

// CorrectAnswerValues returns the values of the answers flagged correct.
func (q Question) CorrectAnswerValues() []string {
	var vals []string
	for _, a := range q.Answers {
		if a.Correct {
			vals = append(vals, a.Value)
		}
	}
	return vals
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Position   int    `json:"position"`
	Value      string `json:"value"`
	Label      string `json:"label"`
	Correct    bool   `json:"correct"`
}

type Submission struct {
	ID        int64     `json:"id"`
	QuizID    int64     `json:"quiz_id"`
	UserID    int64     `json:"user_id"`
	Submitted time.Time `json:"submitted"` // UTC
}

type Response struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submission_id"`
	QuestionID   int64  `json:"question_id"`
	Value        string `json:"value"`
}

// Responses groups a user's responses by question ID.
type Responses map[int64][]string

func NewResponses(rs []Response) Responses {
	res := make(Responses, len(rs))
	for _, r := range rs {
		res[r.QuestionID] = append(res[r.QuestionID], r.Value)
	}
	return res
}
