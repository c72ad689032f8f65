// Package questionset handles the question exchange format: parsing, validation, extraction
// from free text and prompt construction.
package questionset

import (
	"bytes"
	"encoding/json"

	"mcq-quiz-service/internal/domain"
)

type wireOptions struct {
	A string `json:"A" validate:"required"`
	B string `json:"B" validate:"required"`
	C string `json:"C" validate:"required"`
	D string `json:"D" validate:"required"`
}

type wireQuestion struct {
	ID          *int        `json:"id"`
	Question    string      `json:"question" validate:"required"`
	Options     wireOptions `json:"options"`
	Answer      string      `json:"answer" validate:"required,oneof=A B C D"`
	Explanation string      `json:"explanation"`
}

func (w wireQuestion) toDomain() domain.Question {
	return domain.Question{
		ID:   w.ID,
		Text: w.Question,
		Options: map[domain.Option]string{
			domain.OptionA: w.Options.A,
			domain.OptionB: w.Options.B,
			domain.OptionC: w.Options.C,
			domain.OptionD: w.Options.D,
		},
		Correct:     domain.Option(w.Answer),
		Explanation: w.Explanation,
	}
}

// Parse decodes and validates an exchange-format JSON array. Every failure is a
// *domain.ValidationError naming the offending question by its 1-based position.
func Parse(raw []byte) ([]domain.Question, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, domain.Validationf("input is empty")
	}
	if raw[0] != '[' {
		return nil, domain.Validationf("input must be an array of questions")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, domain.Validationf("invalid JSON: %v", err)
	}
	if len(items) == 0 {
		return nil, domain.Validationf("question set is empty")
	}

	v, _ := engine()
	questions := make([]domain.Question, 0, len(items))
	for i, item := range items {
		var w wireQuestion
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, domain.Validationf("question %d: %v", i+1, err)
		}
		if err := v.Struct(w); err != nil {
			return nil, domain.Validationf("question %d: %s", i+1, translate(err))
		}
		questions = append(questions, w.toDomain())
	}

	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Encode renders questions in the exchange format, indented for people to read.
func Encode(questions []domain.Question) ([]byte, error) {
	if questions == nil {
		questions = []domain.Question{}
	}
	return json.MarshalIndent(questions, "", "  ")
}
