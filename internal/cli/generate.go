package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/accumulator"
	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

var (
	flagTitle       string
	flagDescription string
	flagCriteria    string
	flagDataDict    string
	flagStoryID     int
	flagProvider    string
	flagAmbiguity   bool
	flagOutput      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate test cases for a user story",
	Long: `Runs one generation session against the backend and prints the cases
as they stream in. The story comes from flags, or from the tracker when
--story is given. Use --output to save the reviewed result for a later
upload.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagTitle, "title", "", "story title")
	generateCmd.Flags().StringVar(&flagDescription, "description", "", "story description")
	generateCmd.Flags().StringVar(&flagCriteria, "criteria", "", "acceptance criteria")
	generateCmd.Flags().StringVar(&flagDataDict, "data-dictionary", "", "data dictionary text")
	generateCmd.Flags().IntVar(&flagStoryID, "story", 0, "fetch the story from the tracker by work item id")
	generateCmd.Flags().StringVar(&flagProvider, "provider", "", "AI provider (default: the server's default)")
	generateCmd.Flags().BoolVar(&flagAmbiguity, "ambiguity", false, "also generate ambiguity test cases")
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the generated cases to a JSON file")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client := stream.NewClient(backendURL())

	genReq := &testcase.GenerationRequest{
		StoryTitle:         flagTitle,
		StoryDescription:   flagDescription,
		AcceptanceCriteria: flagCriteria,
		DataDictionary:     flagDataDict,
		AIProvider:         flagProvider,
		AmbiguityAware:     flagAmbiguity,
	}

	if flagStoryID > 0 {
		story, err := client.FetchStory(cmd.Context(), flagStoryID)
		if err != nil {
			return fmt.Errorf("failed to fetch story %d: %w", flagStoryID, err)
		}
		genReq.StoryTitle = story.Title
		genReq.StoryDescription = story.Description
		genReq.AcceptanceCriteria = story.AcceptanceCriteria
		genReq.RelatedStories = story.RelatedStories
		infoColor.Fprintf(out, "Fetched story #%d: %s\n", story.ID, story.Title)
	}

	if err := genReq.Validate(); err != nil {
		return err
	}

	acc := accumulator.New()
	events, errs := client.Generate(cmd.Context(), genReq)

	for ev := range events {
		acc.Apply(ev)
		switch ev.Type {
		case stream.EventTypeProgress:
			infoColor.Fprintln(out, ev.Progress)
		case stream.EventTypeCases:
			successColor.Fprintln(out, ev.Progress)
			printCases(out, ev.Cases)
		case stream.EventTypeError:
			errorColor.Fprintf(out, "%s failed: %s\n", ev.CaseType, ev.Error)
		case stream.EventTypeDone:
			fmt.Fprintln(out)
			titleColor.Fprintln(out, ev.Message)
		}
	}
	if err := <-errs; err != nil {
		return err
	}

	done, _ := acc.Done()
	if !done {
		warnColor.Fprintln(out, "Stream ended before the session finished; results may be incomplete.")
	}
	for _, catErr := range acc.Errors() {
		warnColor.Fprintf(out, "Rerun to retry the failed %s category.\n", catErr.Category)
	}

	if flagOutput != "" {
		if err := writeCasesFile(flagOutput, acc.Cases()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d cases to %s\n", acc.Len(), flagOutput)
	}
	return nil
}

func printCases(out io.Writer, cases []testcase.TestCase) {
	for _, tc := range cases {
		fmt.Fprintf(out, "  [%s] %s (%s)\n", tc.ID, tc.Title, tc.Priority)
		for _, step := range tc.Description {
			fmt.Fprintf(out, "      %s\n", strings.TrimSpace(step))
		}
		if tc.ExpectedResult != "" {
			fmt.Fprintf(out, "      => %s\n", tc.ExpectedResult)
		}
	}
}

func writeCasesFile(path string, cases []testcase.TestCase) error {
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cases: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
