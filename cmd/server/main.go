package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/tbrisk/internal/api"
	"github.com/Skufu/tbrisk/internal/classifier"
	"github.com/Skufu/tbrisk/internal/config"
	"github.com/Skufu/tbrisk/internal/hospital"
	"github.com/Skufu/tbrisk/internal/prediction"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "TB risk screening API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the model and hospital dataset, then start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// checkCmd is the startup health check for deployment tooling: it exits
// non-zero unless both startup inputs load and the model answers a probe.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the model artifact and hospital dataset without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			rt, err := loadRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("startup check failed")
				return err
			}

			logger.Info().
				Str("model", rt.model.Name).
				Ints("classes", rt.model.Classes()).
				Int("hospitals", rt.directory.Len()).
				Msg("startup check passed")
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// runtime holds the process-wide read-only resources. Everything in it is
// built before the listener opens and never changes afterwards.
type runtime struct {
	model      *classifier.LinearModel
	directory  *hospital.Directory
	classifier *classifier.Classifier
}

func loadRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	model, err := classifier.LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	logger.Info().Str("path", cfg.ModelPath).Str("model", model.Name).Msg("model loaded")

	directory, err := loadDirectory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load hospitals: %w", err)
	}
	if directory.Len() == 0 {
		logger.Warn().Str("source", cfg.HospitalsSource).Msg("hospital dataset is empty; no recommendations will be made")
	}
	logger.Info().Str("source", cfg.HospitalsSource).Int("hospitals", directory.Len()).Msg("hospital dataset loaded")

	c := classifier.New(model)
	if _, err := c.Probe(ctx); err != nil {
		return nil, fmt.Errorf("probe model: %w", err)
	}

	return &runtime{model: model, directory: directory, classifier: c}, nil
}

func loadDirectory(ctx context.Context, cfg *config.Config) (*hospital.Directory, error) {
	switch cfg.HospitalsSource {
	case config.SourceCSV:
		return hospital.LoadCSVFile(cfg.HospitalsPath)
	case config.SourcePostgres:
		pool, err := hospital.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return hospital.LoadPostgres(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown hospital source %q", cfg.HospitalsSource)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := newLogger(cfg)
	gin.SetMode(cfg.GinMode)

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	rt, err := loadRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("refusing to start")
		return err
	}

	svc := prediction.NewService(rt.classifier, rt.directory)
	router := api.NewRouter(svc, svc, api.Options{
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Sentry:       sentryEnabled,
		Inventory: api.Inventory{
			Model:     rt.model.Name,
			Classes:   rt.model.Classes(),
			Hospitals: rt.directory.Len(),
		},
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info().Str("addr", cfg.Addr()).Msg("server listening")
	return waitForShutdown(server, errCh, logger)
}

func waitForShutdown(server *http.Server, errCh <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
		return err
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
