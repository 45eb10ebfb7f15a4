package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testgenius/testgenius/internal/config"
	"github.com/testgenius/testgenius/internal/generator"
	"github.com/testgenius/testgenius/internal/server"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend server for the browser extension",
	Long: `Starts the HTTP server the browser extension talks to: the SSE
generation endpoint plus the upload, story fetch, and analysis endpoints.

Provider credentials come from the environment: GEMINI_API_KEY and
OPENAI_API_KEY. At least one must be set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "listen port (overrides the configured value)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfigDir)
	if err != nil {
		return err
	}
	if flagPort != 0 {
		cfg.Server.Port = flagPort
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, registry)
	if err != nil {
		return err
	}

	go func() {
		<-cmd.Context().Done()
		srv.Stop()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on port %d (providers: %v)\n", cfg.Server.Port, registry.Names())
	return srv.Start(cmd.Context())
}

// buildRegistry registers one provider per configured credential. The
// configured default goes first so the registry falls back to it.
func buildRegistry(cfg *config.Config) (*generator.Registry, error) {
	registry := generator.NewRegistry()

	register := func(name string) {
		switch name {
		case "gemini":
			if cfg.Providers.GeminiKey == "" {
				return
			}
			var opts []generator.GeminiOption
			if cfg.Providers.GeminiModel != "" {
				opts = append(opts, generator.WithGeminiModel(cfg.Providers.GeminiModel))
			}
			registry.Register(generator.NewGemini(cfg.Providers.GeminiKey, opts...))
		case "openai":
			if cfg.Providers.OpenAIKey == "" {
				return
			}
			var opts []generator.OpenAIOption
			if cfg.Providers.OpenAIModel != "" {
				opts = append(opts, generator.WithOpenAIModel(cfg.Providers.OpenAIModel))
			}
			registry.Register(generator.NewOpenAI(cfg.Providers.OpenAIKey, opts...))
		}
	}

	register(cfg.Providers.Default)
	for _, name := range []string{"gemini", "openai"} {
		if name != cfg.Providers.Default {
			register(name)
		}
	}

	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no provider credentials found: set %s or %s", config.EnvGeminiKey, config.EnvOpenAIKey)
	}
	return registry, nil
}
