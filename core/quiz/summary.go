package quiz

import (
	"sort"
	"strings"
)

// IsQuestionComplete reports whether a question was answered.
// Questions without any correct answer are always complete.
func IsQuestionComplete(q Question, responses Responses) bool {
	if len(q.CorrectAnswerValues()) == 0 {
		return true
	}
	return len(responses[q.ID]) > 0
}

// IsQuizComplete reports whether every question of quiz is complete.
func IsQuizComplete(quiz Quiz, responses Responses) bool {
	for _, q := range quiz.Questions {
		if !IsQuestionComplete(q, responses) {
			return false
		}
	}
	return true
}

// IsUserCorrect reports whether responses answer q correctly.
// Single choice: the response must be a correct answer. Multiple choice: the responses must be exactly
// the correct answers. Free text questions are correct once answered.
func IsUserCorrect(q Question, responses Responses) bool {
	rs := responses[q.ID]
	if len(rs) == 0 {
		return false
	}

	correct := q.CorrectAnswerValues()
	switch q.Type {
	case SingleChoice:
		for _, v := range correct {
			if rs[0] == v {
				return true
			}
		}
		return false
	case MultipleChoice:
		return sameValues(rs, correct)
	default:
		return true
	}
}

func sameValues(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	other := make(map[string]bool, len(b))
	for _, v := range b {
		if !set[v] {
			return false
		}
		other[v] = true
	}
	return len(set) == len(other)
}

// CategorySummary is a user's score on the questions of one category.
type CategorySummary struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Score       int    `json:"score"` // # correct
	Total       int    `json:"total"`
	Passed      bool   `json:"passed"`
}

// SummaryByCategory scores the questions of quizzes per category (the question css class).
// A category is passed when at least two thirds of its questions are correct.
// Summaries are sorted failed first, then by title.
func SummaryByCategory(quizzes []Quiz, responses Responses) []CategorySummary {
	byCat := make(map[string]*CategorySummary)
	for _, quiz := range quizzes {
		for _, q := range quiz.Questions {
			cat := strings.TrimSpace(q.CSSExtra)
			if cat == "" {
				continue
			}
			cs, ok := byCat[cat]
			if !ok {
				cs = &CategorySummary{Category: cat, Title: categoryTitle(cat), Explanation: q.Explanation}
				byCat[cat] = cs
			}
			cs.Total++
			if IsUserCorrect(q, responses) {
				cs.Score++
			}
		}
	}

	summaries := make([]CategorySummary, 0, len(byCat))
	for _, cs := range byCat {
		cs.Passed = cs.Score*3 >= cs.Total*2
		summaries = append(summaries, *cs)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Passed != summaries[j].Passed {
			return !summaries[i].Passed
		}
		return summaries[i].Title < summaries[j].Title
	})
	return summaries
}

// ScoreByCategory indexes the scores of SummaryByCategory.
func ScoreByCategory(quizzes []Quiz, responses Responses) map[string]int {
	scores := make(map[string]int)
	for _, cs := range SummaryByCategory(quizzes, responses) {
		scores[cs.Category] = cs.Score
	}
	return scores
}

// categoryTitle turns "reaction_classes" into "Reaction Classes".
func categoryTitle(cat string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(cat))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
