package service

import "github.com/stemsi/smartexam/internal/model"

// Grading is the outcome of scoring one set of answers.
type Grading struct {
	Correct   int
	Incorrect int
	Blank     int
	Total     int
	Score     float64
}

// Grade scores answers against questions in exam order. A missing or empty
// answer is blank, an exact label match is correct, anything else is
// incorrect. Score is a percentage and is 0 for an exam without questions.
func Grade(questions []model.Question, answers model.Answers) Grading {
	g := Grading{Total: len(questions)}
	for i := range questions {
		q := &questions[i]
		ans, ok := answers[q.ID]
		switch {
		case !ok || ans == "":
			g.Blank++
		case ans == q.CorrectAnswer:
			g.Correct++
		default:
			g.Incorrect++
		}
	}
	if g.Total > 0 {
		g.Score = float64(g.Correct) / float64(g.Total) * 100
	}
	return g
}
