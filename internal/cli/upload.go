package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/stream"
	"github.com/testgenius/testgenius/internal/testcase"
)

var (
	flagPlanID  int
	flagSuiteID int
	flagFile    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload reviewed test cases to a test suite",
	Long: `Uploads test cases from a JSON file (as written by generate --output)
into an Azure DevOps test plan and suite. Creation stops at the first
failure; already-created work items stay in the tracker and are listed so
a rerun can start from the remainder.`,
	Args: cobra.NoArgs,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().IntVar(&flagPlanID, "plan", 0, "test plan id")
	uploadCmd.Flags().IntVar(&flagSuiteID, "suite", 0, "test suite id")
	uploadCmd.Flags().StringVarP(&flagFile, "file", "f", "", "JSON file with the cases to upload")
	uploadCmd.MarkFlagRequired("plan")
	uploadCmd.MarkFlagRequired("suite")
	uploadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(flagFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", flagFile, err)
	}
	var cases []testcase.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return fmt.Errorf("failed to parse %s: %w", flagFile, err)
	}

	client := stream.NewClient(backendURL())
	resp, err := client.Upload(cmd.Context(), &stream.UploadRequest{
		TestPlanID:  flagPlanID,
		TestSuiteID: flagSuiteID,
		TestCases:   cases,
	})
	if err != nil {
		if resp != nil {
			reportPartialUpload(cmd, resp)
		}
		return err
	}

	successColor.Fprintln(out, resp.Message)
	fmt.Fprintf(out, "Work item ids: %v\n", resp.CreatedIDs)
	return nil
}

// reportPartialUpload explains what survived a failed upload and how to
// recover, which differs between the create and link steps.
func reportPartialUpload(cmd *cobra.Command, resp *stream.UploadResponse) {
	out := cmd.OutOrStdout()
	switch resp.Step {
	case "create":
		if len(resp.CreatedIDs) > 0 {
			warnColor.Fprintf(out, "%d of the cases were created before the failure: %v\n", len(resp.CreatedIDs), resp.CreatedIDs)
			warnColor.Fprintln(out, "They remain in the tracker; remove them or rerun with the remaining cases only.")
		}
	case "link":
		warnColor.Fprintf(out, "All %d work items were created but not linked to the suite: %v\n", resp.Count, resp.CreatedIDs)
		warnColor.Fprintln(out, "Add them to the suite manually or retry the link from the tracker UI.")
	}
}
