package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/postgres"
	redisinfra "mcq-quiz-service/internal/infra/redis"
	"mcq-quiz-service/internal/logger"
)

// NewImportCmd stores a question file in the Postgres question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	var file, id, topic string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a question file and save it to the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			ctx := cmd.Context()

			questions, err := readQuestionsFile(file)
			if err != nil {
				return err
			}
			if id == "" {
				id = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}

			if err := runMigrations(ctx, cfg.Postgres.URL, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			bank := postgres.NewQuestionBank(pool)
			set := domain.QuestionSet{ID: id, Topic: topic, Questions: questions}
			if err := bank.SaveQuestionSet(ctx, set); err != nil {
				return err
			}

			// Drop any cached copy so servers pick up the new version.
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				repo := redisinfra.NewQuestionRepository(client, bank, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute), log)
				if err := repo.Invalidate(ctx, id); err != nil {
					log.Warn().Err(err).Str("set", id).Msg("cache invalidation failed")
				}
			}
			log.Info().Str("set", id).Int("count", len(questions)).Msg("question set imported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "question file (JSON array or text containing one)")
	cmd.Flags().StringVar(&id, "id", "", "set id (defaults to the file name)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic label")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
