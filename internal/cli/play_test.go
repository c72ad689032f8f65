package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/timer"
)

func init() {
	color.NoColor = true
}

func loadedSession(t *testing.T, engine *timer.Engine, cfg domain.SessionConfig) *app.Session {
	t.Helper()
	session := app.NewSessionWithTimer("play-1", engine, nil)
	t.Cleanup(session.Close)
	require.NoError(t, session.Load(sampleSets()["sample"].Questions, cfg))
	return session
}

func TestPlayerSubmit(t *testing.T) {
	session := loadedSession(t, nil, domain.SessionConfig{NegativeMarkWeight: 0.5})
	var out bytes.Buffer

	input := strings.NewReader("b\nn\na\nhelp\nsubmit\n")
	res, err := newPlayer(session, &out).run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 1, res.NotAttemptedCount)
	assert.InDelta(t, 0.5, res.RawScore, 1e-9)
	assert.Equal(t, domain.StateCompleted, session.State())

	text := out.String()
	assert.Contains(t, text, "Question 1/3")
	assert.Contains(t, text, "What is 2 + 2?")
	assert.Contains(t, text, "Correct 1")
	assert.Contains(t, text, "Not attempted 1")
	assert.Contains(t, text, "correct: C) Mars")
	assert.Contains(t, text, "Negative marks 0.50")
}

func TestPlayerNavigationAndErrors(t *testing.T) {
	session := loadedSession(t, nil, domain.SessionConfig{})
	var out bytes.Buffer

	input := strings.NewReader("g 3\nc\nclear\ng x\ndance\nresume\nquit\n")
	_, err := newPlayer(session, &out).run(context.Background(), input)
	require.ErrorIs(t, err, errQuit)

	snap := session.Snapshot()
	assert.Equal(t, 2, snap.Current)
	assert.Equal(t, 0, snap.Answered)

	text := out.String()
	assert.Contains(t, text, "Question 3/3")
	assert.Contains(t, text, "not a number: x")
	assert.Contains(t, text, `unknown command "dance"`)
	assert.Contains(t, text, "cannot resume")
}

func TestPlayerPauseResume(t *testing.T) {
	session := loadedSession(t, nil, domain.SessionConfig{})
	var out bytes.Buffer

	input := strings.NewReader("pause\na\nresume\na\nsubmit\n")
	res, err := newPlayer(session, &out).run(context.Background(), input)
	require.NoError(t, err)

	// the first "a" lands while paused and is ignored
	assert.Contains(t, out.String(), "Paused.")
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 2, res.NotAttemptedCount)
}

func TestPlayerTimesOut(t *testing.T) {
	engine := timer.New(timer.WithInterval(2 * time.Millisecond))
	session := loadedSession(t, engine, domain.SessionConfig{TimerPolicy: domain.TimerFixed, TimerMinutes: 1})
	var out bytes.Buffer

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := newPlayer(session, &out).run(ctx, pr)
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, 60, res.ElapsedSeconds)
	assert.Contains(t, out.String(), "Time is up!")
}

func TestPlayerZeroMinuteTimer(t *testing.T) {
	session := loadedSession(t, nil, domain.SessionConfig{TimerPolicy: domain.TimerFixed, TimerMinutes: 0})
	require.Equal(t, domain.StateCompleted, session.State())
	var out bytes.Buffer

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := newPlayer(session, &out).run(ctx, pr)
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, 3, res.NotAttemptedCount)
	assert.Contains(t, out.String(), "Time is up!")
	assert.Contains(t, out.String(), "Not attempted 3")
}

func TestPlayerEndOfInput(t *testing.T) {
	session := loadedSession(t, nil, domain.SessionConfig{})
	_, err := newPlayer(session, io.Discard).run(context.Background(), strings.NewReader(""))
	assert.True(t, errors.Is(err, errQuit))
	assert.Equal(t, domain.StateActive, session.State())
}

func TestReadQuestionsFile(t *testing.T) {
	dir := t.TempDir()
	body := "Sure! Here you go:\n```json\n" + `[
  {"question": "1 + 1?", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "answer": "B"}
]` + "\n```\n"
	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	questions, err := readQuestionsFile(path)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, domain.OptionB, questions[0].Correct)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"question": "x"}]`), 0o600))
	_, err = readQuestionsFile(bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPromptCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"prompt", "--topic", "Go channels", "--count", "3"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Generate 3 MCQ questions on Go channels"))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00", clock(-5))
	assert.Equal(t, "01:05", clock(65))
	assert.Equal(t, "180:00", clock(180*60))
}
