package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/richtext"
	"github.com/testgenius/testgenius/internal/stream"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Review a user story for testability",
	Long: `Asks the AI provider to review a story for ambiguities, missing
acceptance criteria, and coverage gaps. The story comes from the same
flags as generate, or from the tracker with --story.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagTitle, "title", "", "story title")
	analyzeCmd.Flags().StringVar(&flagDescription, "description", "", "story description")
	analyzeCmd.Flags().StringVar(&flagCriteria, "criteria", "", "acceptance criteria")
	analyzeCmd.Flags().IntVar(&flagStoryID, "story", 0, "fetch the story from the tracker by work item id")
	analyzeCmd.Flags().StringVar(&flagProvider, "provider", "", "AI provider (default: the server's default)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client := stream.NewClient(backendURL())

	anReq := &stream.AnalyzeRequest{
		StoryTitle:         flagTitle,
		StoryDescription:   flagDescription,
		AcceptanceCriteria: flagCriteria,
		AIProvider:         flagProvider,
	}

	if flagStoryID > 0 {
		story, err := client.FetchStory(cmd.Context(), flagStoryID)
		if err != nil {
			return fmt.Errorf("failed to fetch story %d: %w", flagStoryID, err)
		}
		anReq.StoryTitle = story.Title
		anReq.StoryDescription = story.Description
		anReq.AcceptanceCriteria = story.AcceptanceCriteria
	}
	if anReq.StoryTitle == "" {
		return fmt.Errorf("a story title is required (--title or --story)")
	}

	resp, err := client.Analyze(cmd.Context(), anReq)
	if err != nil {
		return err
	}

	titleColor.Fprintf(out, "Story review: %s\n\n", anReq.StoryTitle)
	// The provider replies with an HTML fragment for the extension UI.
	fmt.Fprintln(out, richtext.Text(resp.Analysis))
	return nil
}
