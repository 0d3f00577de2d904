// Package main is the entrypoint for the LearnHub progress tracker process.
//
// The tracker owns the progress aggregate for a single learner: chapter
// completion, bookmarks, study-time accrual, the daily streak, the weekly
// goal and the achievement system. The UI layer talks to it through the
// store API and its subscription streams; this process wires configuration,
// storage, the store and the minute-tick scheduler together and shuts them
// down cleanly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/learnhub/learnhub-progress/config"
	"github.com/learnhub/learnhub-progress/internal/domain/progress"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/persistence/memory"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/persistence/postgres"
	redisstore "github.com/learnhub/learnhub-progress/internal/infrastructure/persistence/redis"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/persistence/sqlitekv"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/scheduler"
	"github.com/learnhub/learnhub-progress/internal/infrastructure/scheduler/jobs"
	"github.com/learnhub/learnhub-progress/internal/tracker"
	"github.com/learnhub/learnhub-progress/pkg/logger"
	"github.com/learnhub/learnhub-progress/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.App.Location != nil {
		timeutil.SetLocation(cfg.App.Location)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting LearnHub progress tracker",
		"env", cfg.App.Environment,
		"backend", cfg.Storage.Backend,
		"tick_interval", cfg.Session.TickInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE BACKEND
	// ─────────────────────────────────────────────────────────────────────────
	storage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeStorage()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. PROGRESS STORE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := tracker.NewStore(ctx, storage, tracker.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to initialize progress store: %w", err)
	}
	defer store.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. MINUTE-TICK SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(log)
	if err := sched.Register(
		jobs.NewMinuteTick(store),
		scheduler.NewIntervalSchedule(cfg.Session.TickInterval),
	); err != nil {
		return fmt.Errorf("failed to register minute tick: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ACHIEVEMENT AUDIT LOG
	// ─────────────────────────────────────────────────────────────────────────
	// Human-readable trail of earned achievements, separate from the
	// structured process log.
	audit := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.App.LogLevel),
	}).With(logger.Component("achievements"))

	awards, cancelAwards := store.SubscribeAchievements()
	defer cancelAwards()
	go func() {
		for ev := range awards {
			audit.Info("achievement earned",
				logger.AchievementID(ev.AchievementID),
				logger.String("name", ev.Name),
				logger.String("icon", ev.Icon),
				logger.Time("earned_at", ev.EarnedAt),
			)
		}
	}()

	log.Info("progress tracker running")

	// ─────────────────────────────────────────────────────────────────────────
	// 7. WAIT FOR SHUTDOWN SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("shutdown signal received", "signal", s.String())
	case <-ctx.Done():
	}

	log.Info("progress tracker stopped")
	return nil
}

// openStorage constructs the configured snapshot store and returns it with a
// cleanup function.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (progress.SnapshotStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("memory backend selected: progress does not survive restarts")
		return memory.NewStore(), func() {}, nil

	case config.BackendSQLite:
		st, err := sqlitekv.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	case config.BackendRedis:
		rcfg := redisstore.DefaultConfig()
		rcfg.Host = cfg.Redis.Host
		rcfg.Port = cfg.Redis.Port
		rcfg.Password = cfg.Redis.Password
		rcfg.DB = cfg.Redis.DB
		st, err := redisstore.NewStore(rcfg)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	case config.BackendPostgres:
		pcfg := postgres.DefaultConfig()
		pcfg.URL = cfg.Database.URL
		st, err := postgres.NewStore(ctx, pcfg)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
