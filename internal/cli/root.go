package cli

import (
	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/config"
	"github.com/testgenius/testgenius/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	flagServer    string
	flagConfigDir string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "testgenius",
	Short: "AI-assisted test case generation for Azure DevOps",
	Long: `TestGenius generates categorized test cases for user stories with an AI
provider and uploads the reviewed result to an Azure DevOps test suite.
It runs as the backend for the browser extension (testgenius serve) or
drives the same pipeline from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logging.SetVerbose()
		}
		if flagConfigDir == "" {
			flagConfigDir = config.DefaultBasePath()
		}
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("testgenius version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "backend base URL (overrides the persisted and configured value)")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: the per-user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// backendURL resolves the backend base URL for client commands.
func backendURL() string {
	return config.ResolveBackendURL(flagConfigDir, flagServer)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
