// WP Assistant - content-grounded chat for WordPress sites.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/wpassist/internal/agent"
	"github.com/ashureev/wpassist/internal/config"
	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/metrics"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/ashureev/wpassist/internal/wordpress"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	envFile  string
	logLevel string
	logFile  string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wpassist",
		Short: "Answer visitor questions from a WordPress site's own content",
		Long: `wpassist indexes the posts and pages of a WordPress site through its REST API
and answers questions about them with Gemini, recommending the matching content.

It runs as an HTTP server backing the embeddable widget (serve) or as an
interactive terminal chat (chat).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file to load")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Rotating log file override")

	cmd.AddCommand(serveCmd(opts), chatCmd(opts), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wpassist version %s\n", Version)
		},
	})

	return cmd
}

// loadConfig reads the env file and environment. The boolean reports whether the
// env file was found so it can be logged once the logger exists.
func loadConfig(opts *rootOptions) (*config.Config, bool, error) {
	envLoaded := godotenv.Load(opts.envFile) == nil

	cfg, err := config.Load()
	if err != nil {
		return nil, envLoaded, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	return cfg, envLoaded, nil
}

// newSessionFactory wires the fetcher and the Gemini-backed analyzer. A missing API
// key is reported as *agent.ConfigurationError before anything else starts.
func newSessionFactory(ctx context.Context, cfg *config.Config, mode domain.DisplayMode, m *metrics.Metrics, logger *slog.Logger) (session.Factory, error) {
	client, err := agent.NewGenAIClient(ctx, agent.Config{
		GoogleAPIKey: cfg.Gemini.APIKey,
		ModelName:    cfg.Gemini.Model,
		BaseURL:      cfg.Gemini.BaseURL,
	}, logger)
	if err != nil {
		var cfgErr *agent.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Error("Gemini client not configured", "setting", cfgErr.Setting, "reason", cfgErr.Reason)
		}
		return nil, err
	}
	logger.Info("Gemini client initialized", "model", client.Model())

	fetcher := wordpress.NewFetcher(nil, logger)
	analyzer := agent.NewService(client, logger)

	return func() *session.State {
		return session.New(fetcher, analyzer, session.Options{
			Mode:    mode,
			Metrics: m,
			Logger:  logger,
		})
	}, nil
}
