package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/questionset"
)

// StaticLoader serves question sets from a map (demos and tests).
type StaticLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticLoader(sets map[string]domain.QuestionSet) *StaticLoader {
	return &StaticLoader{sets: sets}
}

func (l *StaticLoader) LoadQuestionSet(_ context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := l.sets[id]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

// DirLoader reads <dir>/<id>.json files in the exchange format.
type DirLoader struct {
	dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

func (l *DirLoader) LoadQuestionSet(_ context.Context, id string) (domain.QuestionSet, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}

	raw, err := os.ReadFile(filepath.Join(l.dir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("read question set %s: %w", id, err)
	}

	questions, err := questionset.Parse(raw)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("question set %s: %w", id, err)
	}
	return domain.QuestionSet{ID: id, Questions: questions}, nil
}

// FallbackLoader tries each loader in order, moving on only when a set is not found.
type FallbackLoader []QuestionLoader

func (f FallbackLoader) LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	for _, l := range f {
		set, err := l.LoadQuestionSet(ctx, id)
		if errors.Is(err, domain.ErrQuestionSetNotFound) {
			continue
		}
		return set, err
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}
