package quiz

import (
	"fmt"

	"github.com/pkg/errors"
)

func (q Quiz) AsDict() map[string]interface{} {
	questions := make([]interface{}, 0, len(q.Questions))
	for _, qu := range q.Questions {
		answers := make([]interface{}, 0, len(qu.Answers))
		for _, a := range qu.Answers {
			answers = append(answers, map[string]interface{}{
				"value":   a.Value,
				"label":   a.Label,
				"correct": a.Correct,
			})
		}
		questions = append(questions, map[string]interface{}{
			"question_type": qu.Type,
			"text":          qu.Text,
			"intro_text":    qu.IntroText,
			"explanation":   qu.Explanation,
			"css_extra":     qu.CSSExtra,
			"answers":       answers,
		})
	}
	return map[string]interface{}{
		"description": q.Description,
		"rhetorical":  q.Rhetorical,
		"questions":   questions,
	}
}

// QuizFromDict builds an unsaved Quiz from its dict form (see Quiz.AsDict).
func QuizFromDict(d map[string]interface{}) (Quiz, error) {
	q := Quiz{
		Description: str(d["description"]),
		Rhetorical:  boolean(d["rhetorical"]),
	}

	rawQuestions, _ := d["questions"].([]interface{})
	for i, rq := range rawQuestions {
		qd, ok := rq.(map[string]interface{})
		if !ok {
			return Quiz{}, errors.Errorf("question %d: invalid format", i)
		}
		qu := Question{
			Position:    i,
			Type:        str(qd["question_type"]),
			Text:        str(qd["text"]),
			IntroText:   str(qd["intro_text"]),
			Explanation: str(qd["explanation"]),
			CSSExtra:    str(qd["css_extra"]),
		}
		if qu.Type == "" {
			qu.Type = SingleChoice
		}
		rawAnswers, _ := qd["answers"].([]interface{})
		for j, ra := range rawAnswers {
			ad, ok := ra.(map[string]interface{})
			if !ok {
				return Quiz{}, errors.Errorf("question %d, answer %d: invalid format", i, j)
			}
			qu.Answers = append(qu.Answers, Answer{
				Position: j,
				Value:    str(ad["value"]),
				Label:    str(ad["label"]),
				Correct:  boolean(ad["correct"]),
			})
		}
		q.Questions = append(q.Questions, qu)
	}
	return q, nil
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func boolean(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
