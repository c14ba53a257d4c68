package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/wpassist/internal/api"
	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/identity"
	"github.com/ashureev/wpassist/internal/logging"
	"github.com/ashureev/wpassist/internal/metrics"
	"github.com/ashureev/wpassist/internal/middleware"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/ashureev/wpassist/internal/view"
	"github.com/ashureev/wpassist/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const sweepInterval = time.Minute

type serveOptions struct {
	port    string
	siteURL string
	mode    string
}

func serveCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server behind the embeddable widget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "Listen port (overrides PORT)")
	cmd.Flags().StringVar(&opts.siteURL, "site", "", "Site indexed when the host page gives none (overrides DEFAULT_SITE_URL)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Default display mode: widget or inline (overrides DISPLAY_MODE)")

	return cmd
}

//nolint:funlen // Startup wiring is intentionally sequential to keep dependency setup explicit.
func runServe(parent context.Context, root *rootOptions, opts *serveOptions) error {
	cfg, envLoaded, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.siteURL != "" {
		cfg.DefaultSiteURL = opts.siteURL
	}
	if opts.mode != "" {
		cfg.DisplayMode = domain.ParseDisplayMode(opts.mode)
	}

	logger, logCloser := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() {
		if closeErr := logCloser.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "close log: %v\n", closeErr)
		}
	}()
	slog.SetDefault(logger)

	if !envLoaded {
		slog.Info("No .env file found, using environment variables")
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "mode", cfg.DisplayMode)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	m := metrics.New()
	factory, err := newSessionFactory(ctx, cfg, cfg.DisplayMode, m, logger)
	if err != nil {
		return err
	}
	registry := session.NewRegistry(factory, m)

	renderer, err := view.NewRenderer(web.Templates(), nil)
	if err != nil {
		return err
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(registry, renderer, cfg)
	widgetHandler := api.NewWidgetHandler(baseHandler)
	wsHandler := api.NewWebSocketHandler(baseHandler, cfg.AllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))
	r.Get("/", web.DemoHandler().ServeHTTP)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}

	// Session routes use identity middleware (no auth needed).
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		widgetHandler.RegisterRoutes(r)
		r.Get("/ws/session", wsHandler.ServeHTTP)
	})

	// Note: SSE connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	sweeperDone := session.StartIdleSweeper(ctx, registry, cfg.SessionIdleTTL, sweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			<-sweeperDone
			return fmt.Errorf("server failed: %w", err)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-sweeperDone

	slog.Info("Server stopped successfully")
	return nil
}
