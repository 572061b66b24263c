package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/juvomcp/juvomcp/internal/config"
	"github.com/juvomcp/juvomcp/internal/domain/tools"
	"github.com/juvomcp/juvomcp/internal/juvonno"
	"github.com/juvomcp/juvomcp/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Juvonno MCP tool server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// validateCmd checks the process-wide JUVONNO_API_KEY and JUVONNO_SUBDOMAIN
// defaults against the live API. This is the only path that uses the
// environment credentials; the HTTP routes always take per-request ones.
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured Juvonno credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JuvonnoAPIKey == "" || cfg.JuvonnoSubdomain == "" {
				return fmt.Errorf("JUVONNO_API_KEY and JUVONNO_SUBDOMAIN must be set")
			}

			client := juvonno.New(juvonno.Options{
				APIKey:     cfg.JuvonnoAPIKey,
				Subdomain:  cfg.JuvonnoSubdomain,
				HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeoutDuration()},
				Logger:     logger,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.UpstreamTimeoutDuration())
			defer cancel()
			if !client.ValidateCredentials(ctx) {
				return fmt.Errorf("credentials rejected by %s", client.BaseURL())
			}
			logger.Info().Str("subdomain", client.Subdomain()).Msg("credentials valid")
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeoutDuration()))

	// One upstream HTTP client shared by all per-request Juvonno clients.
	upstream := &http.Client{Timeout: cfg.UpstreamTimeoutDuration()}
	svc := tools.NewService(func(apiKey, subdomain string) tools.EMR {
		return juvonno.New(juvonno.Options{
			APIKey:     apiKey,
			Subdomain:  subdomain,
			HTTPClient: upstream,
			Logger:     logger,
		})
	}, logger)
	tools.NewHandler(svc).RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
