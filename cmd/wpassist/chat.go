package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/logging"
	"github.com/ashureev/wpassist/internal/metrics"
	"github.com/ashureev/wpassist/internal/tui"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	siteURL string
	mode    string
	style   string
}

func chatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a WordPress site's content in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.siteURL, "site", "", "Site to index on start (defaults to DEFAULT_SITE_URL)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Display mode recorded in the session: widget or inline")
	cmd.Flags().StringVar(&opts.style, "style", "auto", "Markdown style: auto, dark, light or notty")

	return cmd
}

func runChat(ctx context.Context, root *rootOptions, opts *chatOptions) error {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Log lines would corrupt the terminal UI; they go to LOG_FILE or nowhere.
	logger, logCloser := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Quiet: true})
	defer func() {
		if closeErr := logCloser.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "close log: %v\n", closeErr)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	mode := cfg.DisplayMode
	if opts.mode != "" {
		mode = domain.ParseDisplayMode(opts.mode)
	}
	factory, err := newSessionFactory(ctx, cfg, mode, metrics.New(), logger)
	if err != nil {
		return err
	}

	siteURL := opts.siteURL
	if siteURL == "" {
		siteURL = cfg.DefaultSiteURL
	}

	state := factory()
	defer state.Close()
	return tui.Run(ctx, state, tui.Options{SiteURL: siteURL, Style: opts.style})
}
