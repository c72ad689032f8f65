package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
)

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Text: "Question text",
			Options: map[domain.Option]string{
				domain.OptionA: "first",
				domain.OptionB: "second",
				domain.OptionC: "third",
				domain.OptionD: "fourth",
			},
			Correct:     domain.OptionA,
			Explanation: "A is right",
		}
	}
	return qs
}

func slots(choices ...domain.Choice) []domain.AnswerSlot {
	out := make([]domain.AnswerSlot, len(choices))
	for i, c := range choices {
		out[i] = domain.AnswerSlot{QuestionIndex: i, Selected: c}
	}
	return out
}

func TestScoreNegativeMarking(t *testing.T) {
	a, b := domain.Chosen(domain.OptionA), domain.Chosen(domain.OptionB)
	res := app.Score(makeQuestions(5), slots(a, a, a, b, domain.Unset()), 0.25)

	assert.Equal(t, 5, res.TotalQuestions)
	assert.Equal(t, 3, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 1, res.NotAttemptedCount)
	assert.Equal(t, 2.75, res.RawScore)
	assert.Equal(t, 5.0, res.MaxScore)
	assert.Equal(t, 0.25, res.NegativeMarks)
	assert.Equal(t, 55.0, res.Percentage)
	assert.Equal(t, domain.BandKeepPracticing, res.Band())
}

func TestScoreClampsAtZero(t *testing.T) {
	b := domain.Chosen(domain.OptionB)
	res := app.Score(makeQuestions(4), slots(b, b, b, b), 1)

	assert.Equal(t, 0, res.CorrectCount)
	assert.Equal(t, 4, res.WrongCount)
	assert.Equal(t, 4.0, res.NegativeMarks)
	assert.Equal(t, 0.0, res.RawScore)
	assert.Equal(t, 0.0, res.Percentage)
}

func TestScoreUnattemptedListedWithWrong(t *testing.T) {
	res := app.Score(makeQuestions(2), slots(domain.Unset(), domain.Chosen(domain.OptionA)), 0.5)

	require.Len(t, res.WrongDetails, 1)
	require.Len(t, res.CorrectDetails, 1)
	item := res.WrongDetails[0]
	assert.Equal(t, 0, item.QuestionIndex)
	assert.Equal(t, domain.BucketNotAttempted, item.Bucket)
	assert.False(t, item.UserAnswer.IsSet())
	assert.Equal(t, domain.OptionA, item.CorrectAnswer)
	assert.Equal(t, "A is right", item.Explanation)
	assert.Equal(t, 1.0, res.RawScore, "unattempted questions carry no penalty")
}

func TestScorePartitionCoversEveryQuestion(t *testing.T) {
	a, c := domain.Chosen(domain.OptionA), domain.Chosen(domain.OptionC)
	cases := [][]domain.AnswerSlot{
		slots(a, a, a),
		slots(c, c, domain.Unset()),
		slots(domain.Unset(), domain.Unset(), domain.Unset()),
		slots(a, c, domain.Unset()),
	}
	for _, answers := range cases {
		res := app.Score(makeQuestions(3), answers, 0.5)
		assert.Equal(t, res.TotalQuestions, res.CorrectCount+res.WrongCount+res.NotAttemptedCount)
		assert.GreaterOrEqual(t, res.RawScore, 0.0)
		assert.GreaterOrEqual(t, res.Percentage, 0.0)
		assert.LessOrEqual(t, res.Percentage, 100.0)
	}
}

func TestScoreZeroWeightIgnoresWrongAnswers(t *testing.T) {
	b := domain.Chosen(domain.OptionB)
	res := app.Score(makeQuestions(2), slots(domain.Chosen(domain.OptionA), b), 0)
	assert.Equal(t, 1.0, res.RawScore)
	assert.Equal(t, 50.0, res.Percentage)
}

func TestScoreEmptySet(t *testing.T) {
	res := app.Score(nil, nil, 1)
	assert.Equal(t, 0.0, res.Percentage)
	assert.Empty(t, res.WrongDetails)
}
