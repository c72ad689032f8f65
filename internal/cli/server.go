package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/generator"
	"mcq-quiz-service/internal/infra/memory"
	"mcq-quiz-service/internal/infra/postgres"
	redisinfra "mcq-quiz-service/internal/infra/redis"
	"mcq-quiz-service/internal/logger"
	transport "mcq-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	defaults, err := cfg.SessionDefaults()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	service := app.NewQuizService(deps.sessions, deps.questions, newGenerator(cfg, log), defaults)
	router := transport.NewRouter(
		transport.NewAPIHandler(service, log),
		transport.NewWSHandler(service, cfg.Server.AllowedOrigins, log),
		cfg.Server.AllowedOrigins,
		log,
	)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	// No WriteTimeout: websocket connections stay open for the length of a quiz.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// backends are the storage pieces chosen from config: Redis and Postgres when configured,
// in-process maps otherwise.
type backends struct {
	sessions  app.SessionRepository
	questions app.QuestionRepository
	bank      *postgres.QuestionBank
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backends, error) {
	deps := &backends{}

	loaders := memory.FallbackLoader{}
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, pool.Close)
		deps.bank = postgres.NewQuestionBank(pool)
		loaders = append(loaders, deps.bank)
	}
	if cfg.Quiz.Dir != "" {
		loaders = append(loaders, memory.NewDirLoader(cfg.Quiz.Dir))
	}
	loaders = append(loaders, memory.NewStaticLoader(sampleSets()))

	questionTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = client.Close() })
		deps.questions = redisinfra.NewQuestionRepository(client, loaders, questionTTL, log)
		deps.sessions = redisinfra.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 4*time.Hour))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis for question cache")
	} else {
		deps.questions = memory.NewQuestionRepository(loaders, questionTTL)
		deps.sessions = memory.NewSessionStore()
	}
	return deps, nil
}

// newGenerator returns nil when no endpoint is configured so the service reports generation
// as unavailable.
func newGenerator(cfg config.Config, log zerolog.Logger) app.Generator {
	if cfg.Generator.URL == "" {
		return nil
	}
	return generator.NewClient(generator.Config{
		URL:     cfg.Generator.URL,
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		Timeout: config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
	}, log)
}

func intPtr(n int) *int { return &n }

// sampleSets is always available so a fresh install has something to play.
func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"sample": {
			ID:    "sample",
			Topic: "general knowledge",
			Questions: []domain.Question{
				{
					ID:   intPtr(1),
					Text: "What is 2 + 2?",
					Options: map[domain.Option]string{
						domain.OptionA: "3", domain.OptionB: "4", domain.OptionC: "5", domain.OptionD: "22",
					},
					Correct:     domain.OptionB,
					Explanation: "Two pairs make four.",
				},
				{
					ID:   intPtr(2),
					Text: "Which planet is known as the red planet?",
					Options: map[domain.Option]string{
						domain.OptionA: "Venus", domain.OptionB: "Jupiter", domain.OptionC: "Mars", domain.OptionD: "Mercury",
					},
					Correct:     domain.OptionC,
					Explanation: "Iron oxide on its surface gives Mars its colour.",
				},
				{
					ID:   intPtr(3),
					Text: "Which gas do plants absorb during photosynthesis?",
					Options: map[domain.Option]string{
						domain.OptionA: "Oxygen", domain.OptionB: "Carbon dioxide", domain.OptionC: "Nitrogen", domain.OptionD: "Helium",
					},
					Correct: domain.OptionB,
				},
			},
		},
	}
}
