package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/questionset"
)

// SessionRepository abstracts where live sessions are kept (in process only).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// QuestionRepository loads stored question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// Generator produces a validated question set from a prompt request.
type Generator interface {
	Generate(ctx context.Context, req questionset.PromptRequest) ([]domain.Question, error)
}

var errNoGenerator = errors.New("no question generator configured")

// QuizService contains the quiz use cases shared by every transport.
type QuizService struct {
	sessions   SessionRepository
	questions  QuestionRepository
	generator  Generator
	defaults   domain.SessionConfig
	newSession func(id string) *Session
}

// NewQuizService wires the service. questions and generator may be nil when those sources
// are not configured; stored loads then report not found and generated loads fail.
func NewQuizService(sessions SessionRepository, questions QuestionRepository, generator Generator, defaults domain.SessionConfig) *QuizService {
	return &QuizService{
		sessions:   sessions,
		questions:  questions,
		generator:  generator,
		defaults:   defaults,
		newSession: NewSession,
	}
}

// WithSessionFactory replaces how sessions are constructed, e.g. with a test timer.
func (s *QuizService) WithSessionFactory(factory func(id string) *Session) *QuizService {
	if factory != nil {
		s.newSession = factory
	}
	return s
}

// Defaults returns the configured session settings.
func (s *QuizService) Defaults() domain.SessionConfig {
	return s.defaults
}

// Open creates a fresh NotStarted session.
func (s *QuizService) Open(_ context.Context) (*Session, error) {
	session := s.newSession(uuid.NewString())
	s.sessions.Put(session)
	return session, nil
}

func (s *QuizService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// LoadJSON parses raw exchange-format JSON and loads it into the session. A nil cfg means
// the configured defaults.
func (s *QuizService) LoadJSON(_ context.Context, id string, raw []byte, cfg *domain.SessionConfig) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	questions, err := questionset.Parse(raw)
	if err != nil {
		return err
	}
	return session.Load(questions, s.config(cfg))
}

// LoadStored loads a question set from the repository by id.
func (s *QuizService) LoadStored(ctx context.Context, id, setID string, cfg *domain.SessionConfig) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	set, err := s.QuestionSet(ctx, setID)
	if err != nil {
		return err
	}
	return session.Load(set.Questions, s.config(cfg))
}

// LoadGenerated asks the generator for a set and loads it. A failed generation leaves the
// session untouched.
func (s *QuizService) LoadGenerated(ctx context.Context, id string, req questionset.PromptRequest, cfg *domain.SessionConfig) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	questions, err := s.GenerateQuestions(ctx, req)
	if err != nil {
		return err
	}
	return session.Load(questions, s.config(cfg))
}

// QuestionSet fetches a stored set without loading it anywhere.
func (s *QuizService) QuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	if s.questions == nil {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	return s.questions.GetQuestionSet(ctx, setID)
}

// GenerateQuestions runs the generator without touching any session.
func (s *QuizService) GenerateQuestions(ctx context.Context, req questionset.PromptRequest) ([]domain.Question, error) {
	if s.generator == nil {
		return nil, &domain.GenerationError{Reason: "unavailable", Err: errNoGenerator}
	}
	return s.generator.Generate(ctx, req)
}

// Subscribe returns the session's event stream. The caller must invoke cancel.
func (s *QuizService) Subscribe(_ context.Context, id string) (<-chan domain.Event, func(), error) {
	session, err := s.Session(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Close stops the session's timer and forgets it.
func (s *QuizService) Close(_ context.Context, id string) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	session.Close()
	s.sessions.Delete(id)
	return nil
}

func (s *QuizService) config(override *domain.SessionConfig) domain.SessionConfig {
	if override != nil {
		return *override
	}
	return s.defaults
}
