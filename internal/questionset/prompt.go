package questionset

import (
	"fmt"
	"strings"

	"mcq-quiz-service/internal/domain"
)

const (
	MinCount = 1
	MaxCount = 100
)

// PromptRequest asks for Count questions about Topic.
type PromptRequest struct {
	Topic string `json:"topic" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=100"`
}

// Validate requires a non-blank topic and a count between MinCount and MaxCount.
func (r PromptRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return domain.Validationf("topic must not be empty")
	}
	v, _ := engine()
	if err := v.Struct(r); err != nil {
		return domain.Validationf("%s", translate(err))
	}
	return nil
}

const exampleShape = `[
  {
    "id": 1,
    "question": "Question text here?",
    "options": {
      "A": "Option 1",
      "B": "Option 2",
      "C": "Option 3",
      "D": "Option 4"
    },
    "answer": "C",
    "explanation": "Why this answer is correct"
  }
]`

// BuildPrompt renders the instruction sent to a text-generation model (or pasted into a
// chat by hand).
func BuildPrompt(req PromptRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Generate %d MCQ questions on %s in this exact JSON format that i can copy paste :\n%s",
		req.Count, strings.TrimSpace(req.Topic), exampleShape,
	), nil
}
