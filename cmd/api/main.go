// Package main - точка входа REST API Bourgade Hub.
//
// API обслуживает игровой интерфейс экспедиций: создание и просмотр
// экспедиций, вступление и выход, перекладка ресурсов, выбор направления,
// экстренные голосования и административные переопределения.
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
	"github.com/bourgade-rp/bourgade-hub/internal/application/query"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/external/discord"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/messaging"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/persistence/postgres"
	"github.com/bourgade-rp/bourgade-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/bourgade-rp/bourgade-hub/internal/interface/http"
	"github.com/bourgade-rp/bourgade-hub/pkg/logger"
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
	log.Info("starting Bourgade Hub API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

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

	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var expeditionCache *redis.ExpeditionCache

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureRedisCache, "") {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redisConfig(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			expeditionCache = redis.NewExpeditionCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS И ПОДПИСЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if expeditionCache != nil {
		invalidator := messaging.NewCacheInvalidator(expeditionCache, log)
		if err := eventBus.Subscribe(invalidator); err != nil {
			return fmt.Errorf("failed to subscribe cache invalidator: %w", err)
		}
	}

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
	// 5. ХРАНИЛИЩА И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	expeditions := postgres.NewExpeditionRepository(conn)
	townLedger := postgres.NewStockLedger(conn)
	types := postgres.NewResourceTypeRegistry(conn)
	characters := postgres.NewCharacterStore(conn)
	towns := postgres.NewTownStore(conn)

	clock := command.Clock(func() time.Time { return time.Now().UTC() })
	location := cfg.App.Location

	deps := httpapi.Dependencies{
		CreateExpedition: command.NewCreateExpeditionHandler(expeditions, towns, characters, types, eventBus, clock),
		JoinExpedition:   command.NewJoinExpeditionHandler(expeditions, characters, eventBus, clock),
		LeaveExpedition:  command.NewLeaveExpeditionHandler(expeditions, eventBus, clock),
		SetDirection:     command.NewSetDirectionHandler(expeditions, eventBus, clock),
		ToggleVote:       command.NewToggleEmergencyVoteHandler(expeditions, eventBus, clock),
		Transfer:         command.NewTransferResourceHandler(expeditions, types, eventBus, clock),
		LockExpedition:   command.NewLockExpeditionHandler(expeditions, eventBus, location, clock),
		DepartExpedition: command.NewDepartExpeditionHandler(expeditions, eventBus, clock),
		ForceReturn:      command.NewForceReturnHandler(expeditions, eventBus, clock),
		ModifyExpedition: command.NewModifyExpeditionHandler(expeditions, clock),
		AdminMember:      command.NewAdminMemberHandler(expeditions, eventBus, clock),

		GetExpedition:   query.NewGetExpeditionHandler(expeditions, townLedger, types, clock),
		ListExpeditions: query.NewListExpeditionsHandler(expeditions, clock),

		Logger:         setupHTTPLogger(cfg),
		HealthCheckers: healthCheckers(conn, redisCache),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.AdminTokenHash = cfg.HTTP.AdminTokenHash

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	log.Info("Bourgade Hub API is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
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

func redisConfig(cfg *config.Config) redis.Config {
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	rCfg.PoolSize = cfg.Redis.PoolSize
	rCfg.MinIdleConns = cfg.Redis.MinIdleConns
	rCfg.DialTimeout = cfg.Redis.DialTimeout
	rCfg.ReadTimeout = cfg.Redis.ReadTimeout
	rCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return rCfg
}

func healthCheckers(conn *postgres.Connection, cache *redis.Cache) map[string]httpapi.HealthChecker {
	checkers := map[string]httpapi.HealthChecker{
		"postgres": conn,
	}
	if cache != nil {
		checkers["redis"] = cache
	}
	return checkers
}

// setupSlog настраивает структурированное логирование инфраструктуры.
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

// setupHTTPLogger настраивает логгер HTTP-интерфейса.
func setupHTTPLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})
}
