package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func yesNo(id int64, typ, cat string, correct ...string) Question {
	q := Question{ID: id, Type: typ, CSSExtra: cat}
	for _, v := range []string{"yes", "no", "maybe"} {
		a := Answer{Value: v}
		for _, c := range correct {
			if c == v {
				a.Correct = true
			}
		}
		q.Answers = append(q.Answers, a)
	}
	return q
}

func TestIsUserCorrect(t *testing.T) {
	single := yesNo(1, SingleChoice, "", "yes")
	multiple := yesNo(2, MultipleChoice, "", "yes", "maybe")
	text := Question{ID: 3, Type: ShortText}

	tests := []struct {
		name      string
		q         Question
		responses Responses
		want      bool
	}{
		{name: "unanswered", q: single, responses: Responses{}},
		{name: "single choice correct", q: single, responses: Responses{1: {"yes"}}, want: true},
		{name: "single choice wrong", q: single, responses: Responses{1: {"no"}}},
		{name: "multiple choice exact", q: multiple, responses: Responses{2: {"maybe", "yes"}}, want: true},
		{name: "multiple choice partial", q: multiple, responses: Responses{2: {"yes"}}},
		{name: "multiple choice extra", q: multiple, responses: Responses{2: {"yes", "maybe", "no"}}},
		{name: "multiple choice duplicates", q: multiple, responses: Responses{2: {"yes", "yes", "maybe"}}, want: true},
		{name: "free text answered", q: text, responses: Responses{3: {"because"}}, want: true},
		{name: "free text unanswered", q: text, responses: Responses{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUserCorrect(tt.q, tt.responses))
		})
	}
}

func TestIsQuizComplete(t *testing.T) {
	quiz := Quiz{Questions: []Question{
		yesNo(1, SingleChoice, "", "yes"),
		{ID: 2, Type: LongText}, // no correct answer, always complete
	}}

	assert.False(t, IsQuizComplete(quiz, Responses{}))
	assert.True(t, IsQuizComplete(quiz, Responses{1: {"no"}}))
	assert.True(t, IsQuizComplete(Quiz{}, Responses{}))
}

func TestSummaryByCategory(t *testing.T) {
	quizzes := []Quiz{
		{Questions: []Question{
			yesNo(1, SingleChoice, "thermodynamics", "yes"),
			yesNo(2, SingleChoice, "thermodynamics", "no"),
			yesNo(3, SingleChoice, " redox_chemistry ", "yes"),
			yesNo(4, SingleChoice, "", "yes"),
		}},
		{Questions: []Question{
			yesNo(5, SingleChoice, "thermodynamics", "yes"),
			yesNo(6, MultipleChoice, "paper-figures", "yes", "no"),
		}},
	}
	responses := Responses{1: {"yes"}, 2: {"yes"}, 3: {"yes"}, 4: {"yes"}, 5: {"yes"}, 6: {"yes"}}

	want := []CategorySummary{
		{Category: "paper-figures", Title: "Paper Figures", Score: 0, Total: 1},
		{Category: "redox_chemistry", Title: "Redox Chemistry", Score: 1, Total: 1, Passed: true},
		{Category: "thermodynamics", Title: "Thermodynamics", Score: 2, Total: 3, Passed: true},
	}
	assert.Equal(t, want, SummaryByCategory(quizzes, responses))

	assert.Equal(t, map[string]int{"paper-figures": 0, "redox_chemistry": 1, "thermodynamics": 2}, ScoreByCategory(quizzes, responses))
	assert.Empty(t, SummaryByCategory(nil, responses))
}

func TestNewResponses(t *testing.T) {
	rs := NewResponses([]Response{
		{QuestionID: 1, Value: "yes"},
		{QuestionID: 2, Value: "a"},
		{QuestionID: 2, Value: "b"},
	})
	assert.Equal(t, Responses{1: {"yes"}, 2: {"a", "b"}}, rs)
}

func TestQuizFromDict(t *testing.T) {
	q := Quiz{
		Description: "Pretest",
		Questions: []Question{{
			Position: 0,
			Type:     SingleChoice,
			Text:     "Is heat energy?",
			CSSExtra: "thermodynamics",
			Answers: []Answer{
				{Position: 0, Value: "yes", Label: "Yes", Correct: true},
				{Position: 1, Value: "no", Label: "No"},
			},
		}},
	}
	got, err := QuizFromDict(q.AsDict())
	assert.NoError(t, err)
	assert.Equal(t, q, got)

	_, err = QuizFromDict(map[string]interface{}{"questions": []interface{}{"nope"}})
	assert.Error(t, err)

	got, err = QuizFromDict(map[string]interface{}{"questions": []interface{}{map[string]interface{}{"text": "Why?"}}})
	assert.NoError(t, err)
	assert.Equal(t, SingleChoice, got.Questions[0].Type)
}
