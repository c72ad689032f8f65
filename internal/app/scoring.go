package app

import "mcq-quiz-service/internal/domain"

// Score grades answers against questions. Slots are matched to questions by position; an
// unset slot counts as not attempted and is listed with the wrong answers so the review
// shows it. The raw score is floored at zero and the percentage is taken from the floored
// value without rounding.
func Score(questions []domain.Question, answers []domain.AnswerSlot, weight float64) domain.ScoreResult {
	res := domain.ScoreResult{
		TotalQuestions: len(questions),
		MaxScore:       float64(len(questions)),
		WrongDetails:   []domain.ReviewItem{},
		CorrectDetails: []domain.ReviewItem{},
	}

	for i, q := range questions {
		var selected domain.Choice
		if i < len(answers) {
			selected = answers[i].Selected
		}
		item := domain.ReviewItem{
			QuestionIndex: i,
			Question:      q,
			UserAnswer:    selected,
			CorrectAnswer: q.Correct,
			Explanation:   q.Explanation,
		}

		switch {
		case !selected.IsSet():
			item.Bucket = domain.BucketNotAttempted
			res.NotAttemptedCount++
			res.WrongDetails = append(res.WrongDetails, item)
		case selected.Is(q.Correct):
			item.Bucket = domain.BucketCorrect
			res.CorrectCount++
			res.CorrectDetails = append(res.CorrectDetails, item)
		default:
			item.Bucket = domain.BucketWrong
			res.WrongCount++
			res.WrongDetails = append(res.WrongDetails, item)
		}
	}

	res.NegativeMarks = float64(res.WrongCount) * weight
	raw := float64(res.CorrectCount) - res.NegativeMarks
	if raw < 0 {
		raw = 0
	}
	res.RawScore = raw
	if res.MaxScore > 0 {
		res.Percentage = raw * 100 / res.MaxScore
	}
	return res
}
