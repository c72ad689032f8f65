package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcq-quiz-service/internal/questionset"
)

// NewPromptCmd prints the generation prompt so it can be pasted into any chat model.
func NewPromptCmd() *cobra.Command {
	var req questionset.PromptRequest
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt that asks a model for questions in the quiz format",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := questionset.BuildPrompt(req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Topic, "topic", "t", "", "quiz topic")
	cmd.Flags().IntVarP(&req.Count, "count", "n", 10, "number of questions")
	return cmd
}
