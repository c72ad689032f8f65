package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Option is one of the four symbolic answer keys.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Options lists the answer keys in display order.
var Options = [4]Option{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether o is one of A, B, C or D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// ParseOption accepts "a".."d" in either case, ignoring surrounding whitespace.
func ParseOption(raw string) (Option, error) {
	o := Option(strings.ToUpper(strings.TrimSpace(raw)))
	if !o.Valid() {
		return "", fmt.Errorf("option %q must be one of A, B, C or D", raw)
	}
	return o, nil
}

// Choice is the tagged optional answer held by an AnswerSlot: either unset or one Option.
type Choice struct {
	option Option
	set    bool
}

// Chosen wraps o as a set Choice.
func Chosen(o Option) Choice {
	return Choice{option: o, set: true}
}

// Unset is the empty Choice.
func Unset() Choice {
	return Choice{}
}

// Option returns the selected key and whether one is set.
func (c Choice) Option() (Option, bool) {
	return c.option, c.set
}

func (c Choice) IsSet() bool {
	return c.set
}

func (c Choice) Is(o Option) bool {
	return c.set && c.option == o
}

func (c Choice) String() string {
	if !c.set {
		return "-"
	}
	return string(c.option)
}

func (c Choice) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return json.Marshal(string(c.option))
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Choice{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o, err := ParseOption(raw)
	if err != nil {
		return err
	}
	*c = Chosen(o)
	return nil
}

// Question is a single multiple-choice question. It is immutable once loaded into a session.
type Question struct {
	ID          *int              `json:"id,omitempty"`
	Text        string            `json:"question"`
	Options     map[Option]string `json:"options"`
	Correct     Option            `json:"answer"`
	Explanation string            `json:"explanation,omitempty"`
}

// QuestionSet is a named, reusable collection of questions.
type QuestionSet struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic,omitempty"`
	Questions []Question `json:"questions"`
}

// AnswerSlot holds the user's current choice for the question at QuestionIndex.
type AnswerSlot struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      Choice `json:"selectedOption"`
}

// TimerPolicy decides how a session derives its countdown from the config.
type TimerPolicy int

const (
	// TimerFromQuestionCount gives one minute per question, capped at MaxTimerMinutes.
	TimerFromQuestionCount TimerPolicy = iota
	// TimerFixed uses SessionConfig.TimerMinutes as given.
	TimerFixed
)

// MaxTimerMinutes caps the automatic timer.
const MaxTimerMinutes = 180

// ParseTimerPolicy maps config strings ("auto", "fixed") to a policy.
func ParseTimerPolicy(raw string) (TimerPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return TimerFromQuestionCount, nil
	case "fixed":
		return TimerFixed, nil
	}
	return 0, fmt.Errorf("unknown timer policy %q", raw)
}

func (p TimerPolicy) String() string {
	if p == TimerFixed {
		return "fixed"
	}
	return "auto"
}

// SessionConfig is supplied alongside a question set when a session is loaded.
type SessionConfig struct {
	TimerMinutes       int         `json:"timerMinutes"`
	NegativeMarkWeight float64     `json:"negativeMarkWeight"`
	TimerPolicy        TimerPolicy `json:"-"`
}

// EffectiveTimerMinutes returns the countdown length for a set of n questions.
func (c SessionConfig) EffectiveTimerMinutes(n int) int {
	if c.TimerPolicy == TimerFixed {
		return c.TimerMinutes
	}
	if n > MaxTimerMinutes {
		return MaxTimerMinutes
	}
	return n
}

// SessionState is the lifecycle state of a quiz session.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateActive     SessionState = "active"
	StatePaused     SessionState = "paused"
	StateCompleted  SessionState = "completed"
)

// Bucket classifies an answer slot at scoring time.
type Bucket string

const (
	BucketCorrect      Bucket = "correct"
	BucketWrong        Bucket = "wrong"
	BucketNotAttempted Bucket = "not_attempted"
)

// ReviewItem is a per-question record shown after submission.
type ReviewItem struct {
	QuestionIndex int      `json:"questionIndex"`
	Question      Question `json:"question"`
	UserAnswer    Choice   `json:"userAnswer"`
	CorrectAnswer Option   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Bucket        Bucket   `json:"bucket"`
}

// ScoreResult is the graded outcome of a session.
type ScoreResult struct {
	TotalQuestions    int          `json:"totalQuestions"`
	CorrectCount      int          `json:"correctAnswers"`
	WrongCount        int          `json:"wrongAnswers"`
	NotAttemptedCount int          `json:"notAttempted"`
	RawScore          float64      `json:"score"`
	MaxScore          float64      `json:"maxScore"`
	NegativeMarks     float64      `json:"negativeMarks"`
	Percentage        float64      `json:"percentage"`
	WrongDetails      []ReviewItem `json:"wrongQuestions"`
	CorrectDetails    []ReviewItem `json:"correctQuestions"`
	TimedOut          bool         `json:"timedOut"`
	ElapsedSeconds    int          `json:"elapsedSeconds"`
	CompletedAt       time.Time    `json:"completedAt"`
}

// Band is a coarse performance label derived from the percentage.
type Band string

const (
	BandOutstanding    Band = "outstanding"
	BandGreat          Band = "great"
	BandGood           Band = "good"
	BandKeepPracticing Band = "keep_practicing"
	BandDontGiveUp     Band = "dont_give_up"
)

func (r ScoreResult) Band() Band {
	switch p := r.Percentage; {
	case p >= 90:
		return BandOutstanding
	case p >= 75:
		return BandGreat
	case p >= 60:
		return BandGood
	case p >= 40:
		return BandKeepPracticing
	default:
		return BandDontGiveUp
	}
}

// Snapshot is a read-only view of a session for transports.
type Snapshot struct {
	SessionID        string       `json:"sessionId"`
	State            SessionState `json:"state"`
	Current          int          `json:"current"`
	Total            int          `json:"total"`
	Answered         int          `json:"answered"`
	RemainingSeconds int          `json:"remainingSeconds"`
	InitialSeconds   int          `json:"initialSeconds"`
	Answers          []AnswerSlot `json:"answers"`
	Question         *Question    `json:"question,omitempty"`
	Result           *ScoreResult `json:"result,omitempty"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// EventType names what changed in a session.
type EventType string

const (
	EventLoaded    EventType = "loaded"
	EventUpdated   EventType = "updated"
	EventTick      EventType = "tick"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventCompleted EventType = "completed"
	EventRestarted EventType = "restarted"
)

// Event is broadcast to session subscribers.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}
