// Command calshare serves the shared calendar API.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/calshare/internal/config"
	"github.com/cyp0633/calshare/internal/seed"
	"github.com/cyp0633/calshare/server/assistant"
	authmem "github.com/cyp0633/calshare/server/auth/memory"
	"github.com/cyp0633/calshare/server/calendars"
	"github.com/cyp0633/calshare/server/events"
	"github.com/cyp0633/calshare/server/handlers"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/cyp0633/calshare/server/sharing"
	"github.com/cyp0633/calshare/server/storage/memory"
)

const shutdownTimeout = 10 * time.Second

//go:embed demo.yaml
var demoFixture []byte

func main() {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(c config.LoggingConfig) *slog.Logger {
	var level slog.Level
	// validated by config.Load
	_ = level.UnmarshalText([]byte(c.Level))

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, func(), error) {
	if !cfg.NATS.Enabled {
		return notify.Nop{}, func() {}, nil
	}

	natsCfg := notify.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Subject = cfg.NATS.Subject
	pub, err := notify.NewPublisher(natsCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close NATS publisher", "error", err)
		}
	}, nil
}

func loadFixture(cfg *config.Config, logger *slog.Logger) (*seed.Fixture, error) {
	if cfg.SeedFile == "" {
		logger.Info("no seed file configured, loading demo data")
		return seed.Parse(demoFixture)
	}
	logger.Info("loading seed file", "path", cfg.SeedFile)
	return seed.Load(cfg.SeedFile)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	users := authmem.New(authmem.WithLogger(logger))
	store := memory.New()
	engine := recurrence.NewEngine()

	fixture, err := loadFixture(cfg, logger)
	if err != nil {
		return err
	}
	if err := fixture.Apply(ctx, users, store, engine, logger); err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	cals := calendars.NewService(store, users,
		calendars.WithLogger(logger),
		calendars.WithNotifier(notifier))
	evs := events.NewService(store,
		events.WithLogger(logger),
		events.WithNotifier(notifier),
		events.WithRecurrence(engine),
		events.WithLocation(cfg.Location))
	shares := sharing.NewManager(store,
		sharing.Links{AppOrigin: cfg.AppOrigin, JoinPrefix: cfg.JoinPathPrefix},
		sharing.WithLogger(logger),
		sharing.WithNotifier(notifier))

	router := handlers.NewRouter(handlers.Config{
		Calendars:     cals,
		Events:        evs,
		Sharing:       shares,
		Assistant:     assistant.New(cals, evs, assistant.WithLogger(logger), assistant.WithLocation(cfg.Location)),
		Authenticator: users,
		Realm:         cfg.Realm,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting calshare server", "addr", cfg.Listen, "app_origin", cfg.AppOrigin, "timezone", cfg.Timezone)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
