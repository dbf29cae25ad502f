// Package main provides the aidaw server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Britbrat22/aidaw/internal/api/httpapi"
	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/app/library"
	"github.com/Britbrat22/aidaw/internal/app/session"
	"github.com/Britbrat22/aidaw/internal/infra/config"
	"github.com/Britbrat22/aidaw/internal/infra/logger"
	"github.com/Britbrat22/aidaw/internal/infra/master"
)

var (
	app        = kingpin.New("aidaw-server", "aidaw session server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	store, err := library.NewStore(library.Config{
		Dir:      cfg.Library.SpoolDir,
		MaxBytes: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create library store")
	}

	engine, err := newMasterer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create mastering engine")
	}

	// A dead backend only fails exports, so an unhealthy probe warns
	// instead of refusing to start.
	probeBackend(engine)

	defaultFormat, err := cfg.ParseDefaultFormat()
	if err != nil {
		return errors.Wrap(err, "invalid default export format")
	}

	sess := session.NewManager(engine, session.Config{TargetLUFS: cfg.Export.TargetLUFS})
	go logEvents(sess.Events())

	svc := httpapi.NewService(sess, store, httpapi.Config{
		Token:          cfg.API.Token,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		DefaultFormat:  defaultFormat,
	})

	// h2c keeps the surface reachable from HTTP/2 clients without TLS.
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(svc.Handler(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Give the listener a moment before announcing startup.
	time.Sleep(100 * time.Millisecond)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the session first so in-flight handlers see ErrClosed, then
	// drain the HTTP server and drop the spooled sources.
	sess.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}
	if err := store.Close(); err != nil {
		zlog.Error().Msgf("Failed to close library store: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	return nil
}

// newMasterer creates the configured mastering engine.
func newMasterer(cfg *config.Config) (export.Masterer, error) {
	engine := cfg.Export.Engine
	switch engine.Type {
	case "backend":
		return master.New(engine.Settings)
	default:
		return nil, errors.Newf("unsupported export engine type: %s", engine.Type)
	}
}

// probeBackend checks the engine's health with retries, if it has a
// health endpoint at all.
func probeBackend(engine export.Masterer) {
	checker, ok := engine.(interface{ Health(context.Context) error })
	if !ok {
		return
	}

	maxRetries := 3
	baseDelay := 1 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying mastering backend probe in %v...", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if lastErr = checker.Health(ctx); lastErr == nil {
			zlog.Info().Msg("Mastering backend is healthy")
			return
		}
		zlog.Warn().Msgf("Mastering backend probe failed (attempt %d/%d): %v", i+1, maxRetries, lastErr)
	}
	zlog.Warn().Msgf("Mastering backend unreachable, exports will fail until it is up: %v", lastErr)
}

// logEvents drains the session event stream into the log.
func logEvents(events <-chan session.Event) {
	for ev := range events {
		switch ev.Type {
		case session.EventExportFailed:
			zlog.Warn().Err(ev.Err).Msgf("event: %s: format=%s", ev.Type, ev.Format)
		case session.EventExportStarted, session.EventExportFinished:
			zlog.Info().Msgf("event: %s: format=%s", ev.Type, ev.Format)
		case session.EventTransportChanged:
			zlog.Info().Msgf("event: %s: state=%s", ev.Type, ev.State)
		default:
			if ev.Track != nil {
				zlog.Info().Msgf("event: %s: track=%s name=%s", ev.Type, ev.Track.ID, ev.Track.Name)
			} else {
				zlog.Info().Msgf("event: %s", ev.Type)
			}
		}
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))
	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
