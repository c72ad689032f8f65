package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/questionset"
)

// QuestionBank stores question sets as exchange-format JSONB in question_sets.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	var (
		topic string
		raw   []byte
	)
	err := b.pool.QueryRow(ctx, `SELECT topic, data FROM question_sets WHERE id=$1`, id).Scan(&topic, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}

	questions, err := questionset.Parse(raw)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("decode question set %s: %w", id, err)
	}
	return domain.QuestionSet{ID: id, Topic: topic, Questions: questions}, nil
}

// SaveQuestionSet validates and upserts a set.
func (b *QuestionBank) SaveQuestionSet(ctx context.Context, set domain.QuestionSet) error {
	if set.ID == "" {
		return domain.Validationf("question set id is required")
	}
	if err := domain.ValidateQuestions(set.Questions); err != nil {
		return err
	}
	data, err := questionset.Encode(set.Questions)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO question_sets (id, topic, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET topic=EXCLUDED.topic, data=EXCLUDED.data, updated_at=now()`,
		set.ID, set.Topic, string(data))
	if err != nil {
		return fmt.Errorf("save question set: %w", err)
	}
	return nil
}
