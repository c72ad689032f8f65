package domain

import (
	"math"
	"strings"
)

// Validate checks that q has text, all four options and a correct key among them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return Validationf("question text is empty")
	}
	for _, o := range Options {
		if strings.TrimSpace(q.Options[o]) == "" {
			return Validationf("option %s is missing", o)
		}
	}
	if len(q.Options) != len(Options) {
		return Validationf("expected exactly %d options, got %d", len(Options), len(q.Options))
	}
	if !q.Correct.Valid() {
		return Validationf("answer %q must be one of A, B, C or D", string(q.Correct))
	}
	return nil
}

// ValidateQuestions rejects an empty set and reports the first invalid question by its
// 1-based position.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return Validationf("question set is empty")
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return Validationf("question %d: %s", i+1, err.Error())
		}
	}
	return nil
}

// Validate rejects negative minutes and negative or non-finite weights.
func (c SessionConfig) Validate() error {
	if c.TimerMinutes < 0 {
		return Validationf("timer minutes must not be negative, got %d", c.TimerMinutes)
	}
	w := c.NegativeMarkWeight
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return Validationf("negative mark weight must be a non-negative number, got %v", w)
	}
	return nil
}
