package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/logger"
	"mcq-quiz-service/internal/questionset"
)

// NewGenerateCmd calls the configured generator and writes the validated set as JSON.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var (
		req questionset.PromptRequest
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a question set with the configured model endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			gen := newGenerator(cfg, log)
			if gen == nil {
				return fmt.Errorf("generator url not configured (set generator.url or GENERATOR_URL)")
			}

			questions, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			data, err := questionset.Encode(questions)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
				return err
			}
			log.Info().Str("file", out).Int("count", len(questions)).Msg("question set written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Topic, "topic", "t", "", "quiz topic")
	cmd.Flags().IntVarP(&req.Count, "count", "n", 10, "number of questions")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
