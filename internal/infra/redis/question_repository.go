package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logger"
)

// QuestionLoader fetches a question set from its source of truth on cache miss.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// QuestionRepository caches whole question sets in Redis as JSON and falls back to a loader
// on miss. Sets are stored as: SET questionset:{id} <json> EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	log    zerolog.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration, log zerolog.Logger) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    logger.Component(log, "redis-questions"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := r.cached(ctx, id); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if set, ok := r.cached(ctx, id); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		payload, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		if err := r.client.Set(ctx, r.key(id), payload, r.ttlWithJitter()).Err(); err != nil {
			r.log.Warn().Err(err).Str("set", id).Msg("cache fill failed")
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate removes the cached copy of a set.
func (r *QuestionRepository) Invalidate(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// cached reads a set from Redis. Unreadable or invalid entries count as a miss.
func (r *QuestionRepository) cached(ctx context.Context, id string) (domain.QuestionSet, bool) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("set", id).Msg("cache read failed")
		}
		return domain.QuestionSet{}, false
	}

	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		r.log.Warn().Err(err).Str("set", id).Msg("discarding corrupt cache entry")
		return domain.QuestionSet{}, false
	}
	if err := domain.ValidateQuestions(set.Questions); err != nil {
		r.log.Warn().Err(err).Str("set", id).Msg("discarding invalid cache entry")
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) key(id string) string {
	return "questionset:" + id
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
