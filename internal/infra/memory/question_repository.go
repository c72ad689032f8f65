package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/domain"
)

// QuestionLoader fetches a question set from its source of truth (files, Postgres, ...).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with a TTL so repeated loads skip the source.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := r.lookup(id); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		if set, ok := r.lookup(id); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedSet{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops a cached set, e.g. after it was re-imported.
func (r *QuestionRepository) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

func (r *QuestionRepository) lookup(id string) (domain.QuestionSet, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[id]
	if !ok || !entry.expiresAt.After(now) {
		return domain.QuestionSet{}, false
	}
	return entry.set, true
}

// ttlWithJitter is called with mu held.
func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% extra so entries loaded together do not expire together
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
