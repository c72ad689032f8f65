package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logger"
	"mcq-quiz-service/internal/questionset"
)

var errQuit = errors.New("quiz abandoned")

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		file     string
		setID    string
		minutes  int
		negative float64
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		Long: "Loads questions from --file (JSON or a chat reply containing JSON) or a stored set\n" +
			"and runs the quiz interactively. Type help once it starts for the commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			sc, err := cfg.SessionDefaults()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("minutes") {
				sc.TimerPolicy = domain.TimerFixed
				sc.TimerMinutes = minutes
			}
			if cmd.Flags().Changed("negative") {
				sc.NegativeMarkWeight = negative
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var questions []domain.Question
			if file != "" {
				questions, err = readQuestionsFile(file)
			} else {
				var deps *backends
				deps, err = buildBackends(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer deps.close()
				var set domain.QuestionSet
				set, err = deps.questions.GetQuestionSet(ctx, setID)
				questions = set.Questions
			}
			if err != nil {
				return err
			}

			session := app.NewSession(uuid.NewString())
			defer session.Close()
			if err := session.Load(questions, sc); err != nil {
				return err
			}
			_, err = newPlayer(session, cmd.OutOrStdout()).run(ctx, cmd.InOrStdin())
			if errors.Is(err, errQuit) {
				fmt.Fprintln(cmd.OutOrStdout(), "Bye.")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "question file (JSON array or text containing one)")
	cmd.Flags().StringVar(&setID, "set", "sample", "stored question set id, used when --file is empty")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "fixed timer length in minutes; without it the timer follows the question count")
	cmd.Flags().Float64Var(&negative, "negative", 0, "marks deducted per wrong answer")
	return cmd
}

// readQuestionsFile accepts a bare JSON array or text that contains one.
func readQuestionsFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	questions, err := questionset.Parse(data)
	if err == nil {
		return questions, nil
	}
	raw, extractErr := questionset.Extract(string(data))
	if extractErr != nil {
		return nil, err
	}
	return questionset.Parse(raw)
}

type player struct {
	session *app.Session
	out     io.Writer

	title  *color.Color
	good   *color.Color
	bad    *color.Color
	muted  *color.Color
	marked *color.Color
}

func newPlayer(session *app.Session, out io.Writer) *player {
	return &player{
		session: session,
		out:     out,
		title:   color.New(color.FgCyan, color.Bold),
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		muted:   color.New(color.Faint),
		marked:  color.New(color.FgYellow, color.Bold),
	}
}

// run drives the session from input lines until it completes, the input ends or ctx is
// cancelled. Timer expiry completes the session on its own and ends the loop.
func (p *player) run(ctx context.Context, in io.Reader) (domain.ScoreResult, error) {
	events, cancel := p.session.Subscribe()
	defer cancel()

	// A zero-minute timer completes the session during Load, before anyone listens.
	if res, ok := p.session.Result(); ok {
		p.finish(res)
		return res, nil
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	p.render(p.session.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return domain.ScoreResult{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return domain.ScoreResult{}, errQuit
			}
			switch ev.Type {
			case domain.EventCompleted:
				if ev.Snapshot.Result != nil && ev.Snapshot.Result.TimedOut {
					p.finish(*ev.Snapshot.Result)
					return *ev.Snapshot.Result, nil
				}
			case domain.EventTick:
				if r := ev.Snapshot.RemainingSeconds; r == 60 || r == 10 {
					p.marked.Fprintf(p.out, "\n%s left\n", clock(r))
				}
			}
		case line, ok := <-lines:
			if !ok {
				return domain.ScoreResult{}, errQuit
			}
			res, done, err := p.handle(strings.TrimSpace(line))
			if err != nil {
				return domain.ScoreResult{}, err
			}
			if done {
				p.finish(res)
				return res, nil
			}
		}
	}
}

// handle applies one command. It reports done once the session has been submitted.
func (p *player) handle(line string) (domain.ScoreResult, bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		p.render(p.session.Snapshot())
		return domain.ScoreResult{}, false, nil
	}
	current := p.session.Snapshot().Current

	switch cmd := fields[0]; cmd {
	case "a", "b", "c", "d":
		o, _ := domain.ParseOption(cmd)
		p.session.SelectOption(current, o)
	case "clear":
		p.session.ClearOption(current)
	case "n", "next":
		p.session.Next()
	case "p", "prev", "previous":
		p.session.Previous()
	case "g", "goto":
		if len(fields) < 2 {
			p.bad.Fprintln(p.out, "usage: g <question number>")
			return domain.ScoreResult{}, false, nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			p.bad.Fprintf(p.out, "not a number: %s\n", fields[1])
			return domain.ScoreResult{}, false, nil
		}
		p.session.GoTo(n - 1)
	case "pause":
		if err := p.session.Pause(); err != nil {
			p.bad.Fprintln(p.out, err)
			return domain.ScoreResult{}, false, nil
		}
		p.muted.Fprintln(p.out, "Paused. Type resume to continue.")
		return domain.ScoreResult{}, false, nil
	case "resume":
		if err := p.session.Resume(); err != nil {
			p.bad.Fprintln(p.out, err)
			return domain.ScoreResult{}, false, nil
		}
	case "submit":
		res, err := p.session.Submit()
		if err != nil {
			// lost the race with expiry
			if res, ok := p.session.Result(); ok {
				return res, true, nil
			}
			p.bad.Fprintln(p.out, err)
			return domain.ScoreResult{}, false, nil
		}
		return res, true, nil
	case "q", "quit", "exit":
		return domain.ScoreResult{}, false, errQuit
	case "h", "help", "?":
		p.printHelp()
		return domain.ScoreResult{}, false, nil
	default:
		p.bad.Fprintf(p.out, "unknown command %q, type help\n", cmd)
		return domain.ScoreResult{}, false, nil
	}
	p.render(p.session.Snapshot())
	return domain.ScoreResult{}, false, nil
}

func (p *player) render(snap domain.Snapshot) {
	if snap.Question == nil {
		return
	}
	q := snap.Question
	fmt.Fprintln(p.out)
	p.title.Fprintf(p.out, "Question %d/%d", snap.Current+1, snap.Total)
	p.muted.Fprintf(p.out, "  answered %d", snap.Answered)
	if snap.InitialSeconds > 0 {
		p.muted.Fprintf(p.out, "  time %s", clock(snap.RemainingSeconds))
	}
	fmt.Fprintf(p.out, "\n%s\n", q.Text)

	var selected domain.Choice
	if snap.Current < len(snap.Answers) {
		selected = snap.Answers[snap.Current].Selected
	}
	for _, o := range domain.Options {
		line := fmt.Sprintf("  %s) %s", o, q.Options[o])
		if selected.Is(o) {
			p.marked.Fprintln(p.out, line+"  <")
			continue
		}
		fmt.Fprintln(p.out, line)
	}
}

func (p *player) finish(res domain.ScoreResult) {
	if res.TimedOut {
		p.bad.Fprintln(p.out, "\nTime is up!")
	}
	p.printResult(res)
}

func (p *player) printResult(res domain.ScoreResult) {
	fmt.Fprintln(p.out)
	p.title.Fprintln(p.out, "Result")
	fmt.Fprintf(p.out, "Score %.2f / %.0f (%.1f%%)  %s\n", res.RawScore, res.MaxScore, res.Percentage, bandLabel(res.Band()))
	p.good.Fprintf(p.out, "Correct %d", res.CorrectCount)
	fmt.Fprint(p.out, "  ")
	p.bad.Fprintf(p.out, "Wrong %d", res.WrongCount)
	fmt.Fprint(p.out, "  ")
	p.muted.Fprintf(p.out, "Not attempted %d\n", res.NotAttemptedCount)
	if res.NegativeMarks > 0 {
		p.muted.Fprintf(p.out, "Negative marks %.2f\n", res.NegativeMarks)
	}
	fmt.Fprintf(p.out, "Time taken %s\n", clock(res.ElapsedSeconds))

	for _, item := range res.WrongDetails {
		fmt.Fprintln(p.out)
		fmt.Fprintf(p.out, "%d. %s\n", item.QuestionIndex+1, item.Question.Text)
		if item.Bucket == domain.BucketNotAttempted {
			p.muted.Fprintln(p.out, "   not attempted")
		} else {
			p.bad.Fprintf(p.out, "   your answer: %s\n", item.UserAnswer)
		}
		p.good.Fprintf(p.out, "   correct: %s) %s\n", item.CorrectAnswer, item.Question.Options[item.CorrectAnswer])
		if item.Explanation != "" {
			p.muted.Fprintf(p.out, "   %s\n", item.Explanation)
		}
	}
}

func (p *player) printHelp() {
	p.muted.Fprintln(p.out, "a b c d   choose an option      clear   clear the answer")
	p.muted.Fprintln(p.out, "n / p     next / previous       g N     go to question N")
	p.muted.Fprintln(p.out, "pause     pause the timer       resume  resume")
	p.muted.Fprintln(p.out, "submit    finish and score      quit    abandon the quiz")
}

func bandLabel(b domain.Band) string {
	switch b {
	case domain.BandOutstanding:
		return "Outstanding!"
	case domain.BandGreat:
		return "Great job!"
	case domain.BandGood:
		return "Good effort."
	case domain.BandKeepPracticing:
		return "Keep practicing."
	default:
		return "Don't give up."
	}
}

func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
