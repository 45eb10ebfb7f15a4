package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Persist the backend URL used by client commands",
	Long: `Stores a backend URL override so later commands use it without the
--server flag. Pass an empty string to clear the override.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.PersistBackendURL(flagConfigDir, args[0]); err != nil {
			return err
		}
		if args[0] == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Backend URL override cleared.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Backend URL set to %s\n", args[0])
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfigDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend URL:   %s\n", config.ResolveBackendURL(flagConfigDir, flagServer))
		fmt.Fprintf(out, "Server port:   %d\n", cfg.Server.Port)
		fmt.Fprintf(out, "Azure org:     %s\n", cfg.Azure.OrgURL)
		fmt.Fprintf(out, "Azure project: %s\n", cfg.Azure.Project)
		fmt.Fprintf(out, "Default provider: %s\n", cfg.Providers.Default)
		fmt.Fprintf(out, "Gemini key:    %s\n", maskPresence(cfg.Providers.GeminiKey))
		fmt.Fprintf(out, "OpenAI key:    %s\n", maskPresence(cfg.Providers.OpenAIKey))
		fmt.Fprintf(out, "Azure PAT:     %s\n", maskPresence(cfg.Azure.PAT))
		return nil
	},
}

func maskPresence(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
