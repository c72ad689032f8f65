package app

import (
	"sync"
	"time"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/timer"
)

// Session is one timed assessment. Every mutation, including timer callbacks, is serialised
// through mu; the session lock is always taken before the timer's.
type Session struct {
	id    string
	now   func() time.Time
	timer *timer.Engine

	mu          sync.Mutex
	state       domain.SessionState
	questions   []domain.Question
	answers     []domain.AnswerSlot
	current     int
	config      domain.SessionConfig
	result      *domain.ScoreResult
	loadGen     uint64
	subscribers map[chan domain.Event]struct{}
}

// NewSession returns an empty session with its own one-second timer.
func NewSession(id string) *Session {
	return newSession(id, timer.New(), time.Now)
}

// NewSessionWithTimer lets tests drive the countdown and the clock.
func NewSessionWithTimer(id string, engine *timer.Engine, now func() time.Time) *Session {
	if engine == nil {
		engine = timer.New()
	}
	if now == nil {
		now = time.Now
	}
	return newSession(id, engine, now)
}

func newSession(id string, engine *timer.Engine, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		now:         now,
		timer:       engine,
		state:       domain.StateNotStarted,
		subscribers: make(map[chan domain.Event]struct{}),
	}
	engine.OnTick(func(int) { s.onTick() })
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load installs a question set and starts the countdown. The session is left untouched when
// the set or config is rejected.
func (s *Session) Load(questions []domain.Question, cfg domain.SessionConfig) error {
	if err := domain.ValidateQuestions(questions); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != domain.StateNotStarted {
		state := s.state
		s.mu.Unlock()
		return &domain.StateError{Op: "load", State: state}
	}

	s.questions = append([]domain.Question(nil), questions...)
	s.answers = make([]domain.AnswerSlot, len(questions))
	for i := range s.answers {
		s.answers[i] = domain.AnswerSlot{QuestionIndex: i}
	}
	s.current = 0
	s.config = cfg
	s.result = nil
	s.state = domain.StateActive
	s.loadGen++
	gen := s.loadGen
	s.timer.OnExpire(func() { s.expire(gen) })

	minutes := cfg.EffectiveTimerMinutes(len(questions))
	if minutes > 0 {
		err := s.timer.Start(minutes)
		s.broadcastLocked(domain.EventLoaded)
		s.mu.Unlock()
		return err
	}

	s.broadcastLocked(domain.EventLoaded)
	s.mu.Unlock()
	// A zero-length countdown expires synchronously, so it must run without the session lock.
	return s.timer.Start(0)
}

// SelectOption records o for the question at index. It reports false, leaving every slot
// untouched, when the session is not active or the index or option is out of range.
func (s *Session) SelectOption(index int, o domain.Option) bool {
	if !o.Valid() {
		return false
	}
	return s.setSlot(index, domain.Chosen(o))
}

// ClearOption resets the slot at index to unset under the same rules as SelectOption.
func (s *Session) ClearOption(index int) bool {
	return s.setSlot(index, domain.Unset())
}

func (s *Session) setSlot(index int, c domain.Choice) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive || index < 0 || index >= len(s.answers) {
		return false
	}
	s.answers[index].Selected = c
	s.broadcastLocked(domain.EventUpdated)
	return true
}

// GoTo moves the cursor, clamped to the question range, and returns where it landed. It
// does nothing unless the session is active.
func (s *Session) GoTo(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(index)
}

func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.current + 1)
}

func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(s.current - 1)
}

func (s *Session) moveLocked(index int) int {
	if s.state != domain.StateActive || len(s.questions) == 0 {
		return s.current
	}
	if index < 0 {
		index = 0
	}
	if last := len(s.questions) - 1; index > last {
		index = last
	}
	if index != s.current {
		s.current = index
		s.broadcastLocked(domain.EventUpdated)
	}
	return s.current
}

// Submit grades the session and stops the timer.
func (s *Session) Submit() (domain.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return domain.ScoreResult{}, &domain.StateError{Op: "submit", State: s.state}
	}
	return s.completeLocked(false), nil
}

// OnTimerExpired completes an active session as timed out. Calls in any other state,
// including repeats after completion, do nothing.
func (s *Session) OnTimerExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateActive {
		s.completeLocked(true)
	}
}

// expire is the timer listener for load generation gen; signals from an earlier load are dropped.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen || s.state != domain.StateActive {
		return
	}
	s.completeLocked(true)
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return &domain.StateError{Op: "pause", State: s.state}
	}
	if !s.timer.Pause() {
		// The countdown hit zero and its expiry is waiting on our lock.
		s.completeLocked(true)
		return &domain.StateError{Op: "pause", State: s.state}
	}
	s.state = domain.StatePaused
	s.broadcastLocked(domain.EventPaused)
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StatePaused {
		return &domain.StateError{Op: "resume", State: s.state}
	}
	s.timer.Resume()
	s.state = domain.StateActive
	s.broadcastLocked(domain.EventResumed)
	return nil
}

// Restart abandons whatever the session holds and returns it to NotStarted. It is accepted
// from every state.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.broadcastLocked(domain.EventRestarted)
}

// Close stops the timer and releases every subscriber.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) resetLocked() {
	s.timer.Stop()
	s.loadGen++
	s.questions = nil
	s.answers = nil
	s.current = 0
	s.result = nil
	s.config = domain.SessionConfig{}
	s.state = domain.StateNotStarted
}

// Result returns the graded outcome once the session is completed.
func (s *Session) Result() (domain.ScoreResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.ScoreResult{}, false
	}
	return *s.result, true
}

func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) completeLocked(timedOut bool) domain.ScoreResult {
	st := s.timer.State()
	s.timer.Stop()

	res := Score(s.questions, s.answers, s.config.NegativeMarkWeight)
	res.TimedOut = timedOut
	if timedOut {
		res.ElapsedSeconds = st.Initial
	} else {
		res.ElapsedSeconds = st.Initial - st.Remaining
	}
	res.CompletedAt = s.now()

	s.result = &res
	s.state = domain.StateCompleted
	s.broadcastLocked(domain.EventCompleted)
	return res
}

func (s *Session) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateActive {
		s.broadcastLocked(domain.EventTick)
	}
}

// Subscribe returns a channel of session events, primed with the current snapshot. The
// caller must invoke cancel to release it.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	s.mu.Lock()
	// primed under the lock so no broadcast or Close can get ahead of it; ch is empty here
	ch <- domain.Event{Type: domain.EventUpdated, Snapshot: s.snapshotLocked()}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(t domain.EventType) {
	if len(s.subscribers) == 0 {
		return
	}
	ev := domain.Event{Type: t, Snapshot: s.snapshotLocked()}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop its oldest event so the broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	st := s.timer.State()
	snap := domain.Snapshot{
		SessionID:        s.id,
		State:            s.state,
		Current:          s.current,
		Total:            len(s.questions),
		RemainingSeconds: st.Remaining,
		InitialSeconds:   st.Initial,
		Answers:          append([]domain.AnswerSlot(nil), s.answers...),
		UpdatedAt:        s.now(),
	}
	for _, a := range s.answers {
		if a.Selected.IsSet() {
			snap.Answered++
		}
	}
	if s.current < len(s.questions) {
		q := s.questions[s.current]
		snap.Question = &q
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
	}
	return snap
}
