package questionset_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/questionset"
)

const validSet = `[
  {
    "id": 1,
    "question": "What is the capital of France?",
    "options": {"A": "London", "B": "Berlin", "C": "Paris", "D": "Madrid"},
    "answer": "C",
    "explanation": "Paris is the capital"
  },
  {
    "question": "Which planet is known as the Red Planet?",
    "options": {"A": "Venus", "B": "Mars", "C": "Jupiter", "D": "Saturn"},
    "answer": "B"
  }
]`

func TestParseValidSet(t *testing.T) {
	qs, err := questionset.Parse([]byte(validSet))
	require.NoError(t, err)
	require.Len(t, qs, 2)

	first := qs[0]
	require.NotNil(t, first.ID)
	assert.Equal(t, 1, *first.ID)
	assert.Equal(t, "What is the capital of France?", first.Text)
	assert.Equal(t, "Paris", first.Options[domain.OptionC])
	assert.Equal(t, domain.OptionC, first.Correct)
	assert.Equal(t, "Paris is the capital", first.Explanation)

	assert.Nil(t, qs[1].ID)
	assert.Empty(t, qs[1].Explanation)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `not json`, "array"},
		{"object", `{"question": "x"}`, "array"},
		{"empty array", `[]`, "empty"},
		{"blank", `   `, "empty"},
		{"missing option", `[{"question":"q","options":{"A":"1","B":"2","C":"3"},"answer":"A"}]`, "question 1"},
		{"answer out of range", `[{"question":"q","options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"E"}]`, "answer"},
		{"missing text", `[{"options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"A"}]`, "question"},
		{"blank text", `[{"question":"  ","options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"A"}]`, "question 1"},
		{"second question bad", `[{"question":"q","options":{"A":"1","B":"2","C":"3","D":"4"},"answer":"A"},{"question":"q2"}]`, "question 2"},
		{"truncated", `[{"question":"q"`, "invalid JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := questionset.Parse([]byte(tc.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	qs, err := questionset.Parse([]byte(validSet))
	require.NoError(t, err)

	raw, err := questionset.Encode(qs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"answer": "C"`)

	again, err := questionset.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, qs, again)
}

func TestExtractFromFencedReply(t *testing.T) {
	reply := "Sure! Here are your questions:\n```json\n" + validSet + "\n```\nGood luck [and have fun]."
	raw, err := questionset.Extract(reply)
	require.NoError(t, err)

	qs, err := questionset.Parse(raw)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestExtractIgnoresBracketsInStrings(t *testing.T) {
	text := `prefix [{"question": "Which is a list literal: ] or [?", "tag": "a\"]b"}] suffix ]`
	raw, err := questionset.Extract(text)
	require.NoError(t, err)
	assert.Equal(t, `[{"question": "Which is a list literal: ] or [?", "tag": "a\"]b"}]`, string(raw))
}

func TestExtractSkipsBracketedProse(t *testing.T) {
	reply := "Here are [5] questions, see note [a]:\n" + validSet
	raw, err := questionset.Extract(reply)
	require.NoError(t, err)

	qs, err := questionset.Parse(raw)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestExtractFallsBackToFirstSpan(t *testing.T) {
	raw, err := questionset.Extract("only numbers [1, 2] and [3]")
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", string(raw))

	_, err = questionset.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExtractFailures(t *testing.T) {
	_, err := questionset.Extract("no array here")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = questionset.Extract(`[{"question": "open"`)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := questionset.BuildPrompt(questionset.PromptRequest{Topic: "  Go channels ", Count: 20})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Generate 20 MCQ questions on Go channels in this exact JSON format"))
	assert.Contains(t, prompt, `"answer": "C"`)
}

func TestPromptRequestValidation(t *testing.T) {
	cases := []questionset.PromptRequest{
		{Topic: "", Count: 10},
		{Topic: "   ", Count: 10},
		{Topic: "History", Count: 0},
		{Topic: "History", Count: 101},
	}
	for _, req := range cases {
		_, err := questionset.BuildPrompt(req)
		assert.ErrorIs(t, err, domain.ErrValidation, "request %+v", req)
	}

	assert.NoError(t, questionset.PromptRequest{Topic: "History", Count: 100}.Validate())
	assert.NoError(t, questionset.PromptRequest{Topic: "History", Count: 1}.Validate())
}
