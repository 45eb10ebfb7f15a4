package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/stream"
)

var flagJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <story-id>",
	Short: "Fetch a user story from the tracker",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&flagJSON, "json", false, "print the story as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	storyID, err := strconv.Atoi(args[0])
	if err != nil || storyID <= 0 {
		return fmt.Errorf("invalid story id %q", args[0])
	}

	client := stream.NewClient(backendURL())
	story, err := client.FetchStory(cmd.Context(), storyID)
	if err != nil {
		return err
	}

	if flagJSON {
		data, err := json.MarshalIndent(story, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	titleColor.Fprintf(out, "#%d %s\n\n", story.ID, story.Title)
	fmt.Fprintln(out, story.Description)
	if story.AcceptanceCriteria != "" {
		infoColor.Fprintln(out, "\nAcceptance Criteria")
		fmt.Fprintln(out, story.AcceptanceCriteria)
	}
	return nil
}
