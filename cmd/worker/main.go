// Package main - точка входа фоновых процессов (Worker) Bourgade Hub.
//
// Worker ведёт игровые сутки экспедиций:
// - Лок планируемых экспедиций в полночь
// - Выход залоченных экспедиций утром
// - Суточный перенос направления в маршрут
// - Возвращение экспедиций с истёкшим сроком
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bourgade-rp/bourgade-hub/config"
	"github.com/bourgade-rp/bourgade-hub/internal/application/command"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/external/discord"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/messaging"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/persistence/postgres"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/scheduler"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/scheduler/jobs"
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
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupSlog(cfg)
	log.Info("starting Bourgade Hub Worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing to do (SCHEDULER_ENABLED=false)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		conn.Close()
	}()

	// Worker тоже применяет миграции: он может стартовать раньше API.
	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS И УВЕДОМЛЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if cfg.Discord.WebhookURL != "" && cfg.Features.IsEnabled(config.FeatureDiscordNotifications, "") {
		discordCfg := discord.DefaultClientConfig(cfg.Discord.WebhookURL)
		discordCfg.Username = cfg.Discord.Username
		discordCfg.Timeout = cfg.Discord.RequestTimeout
		discordCfg.Logger = log
		notifier := discord.NewNotifier(discord.NewClient(discordCfg), log)
		if err := eventBus.Subscribe(notifier); err != nil {
			return fmt.Errorf("failed to subscribe discord notifier: %w", err)
		}
		log.Info("discord notifications enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ОБРАБОТЧИКИ ЖИЗНЕННОГО ЦИКЛА
	// ─────────────────────────────────────────────────────────────────────────
	expeditions := postgres.NewExpeditionRepository(conn)
	clock := command.Clock(func() time.Time { return time.Now().UTC() })
	location := cfg.App.Location

	lockHandler := command.NewLockExpeditionHandler(expeditions, eventBus, location, clock)
	departHandler := command.NewDepartExpeditionHandler(expeditions, eventBus, clock)
	rolloverHandler := command.NewRolloverDayHandler(expeditions, eventBus, location, clock)
	returnHandler := command.NewReturnExpeditionHandler(expeditions, eventBus, clock)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: location,
		OnJobError: func(jobName string, err error) {
			log.Error("scheduled job failed", "job", jobName, "error", err)
		},
	})

	registrations := []struct {
		job      scheduler.Job
		schedule scheduler.Schedule
	}{
		{
			job:      jobs.NewLockExpeditionsJob(expeditions, lockHandler, log, location, clock),
			schedule: scheduler.NewDailyAtSchedule(cfg.Scheduler.LockHour, 0, location),
		},
		{
			job:      jobs.NewDepartExpeditionsJob(expeditions, departHandler, log),
			schedule: scheduler.NewDailyAtSchedule(cfg.Scheduler.DepartHour, 0, location),
		},
		{
			job:      jobs.NewRolloverDirectionsJob(expeditions, rolloverHandler, log),
			schedule: scheduler.NewDailyAtSchedule(0, cfg.Scheduler.RolloverMinute, location),
		},
		{
			job:      jobs.NewReturnExpeditionsJob(expeditions, returnHandler, log, clock),
			schedule: scheduler.NewIntervalSchedule(cfg.Scheduler.ReturnSweepInterval),
		},
	}

	for _, r := range registrations {
		if err := sched.Register(r.job, r.schedule); err != nil {
			return fmt.Errorf("failed to register job %q: %w", r.job.Name(), err)
		}
		log.Info("job registered", "job", r.job.Name(), "schedule", r.schedule.String())
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("Bourgade Hub Worker is running",
		"lock_hour", cfg.Scheduler.LockHour,
		"depart_hour", cfg.Scheduler.DepartHour,
		"return_sweep", cfg.Scheduler.ReturnSweepInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.Database = cfg.Database.Name
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.SSLMode = cfg.Database.SSLMode
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	return postgres.NewConnection(ctx, pgCfg)
}

// setupSlog настраивает структурированное логирование.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
