package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/taskpilot/taskpilot/db"
	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/chat"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/conversation"
	"github.com/taskpilot/taskpilot/internal/database"
	"github.com/taskpilot/taskpilot/internal/llm"
	"github.com/taskpilot/taskpilot/internal/log"
	"github.com/taskpilot/taskpilot/internal/observability"
	"github.com/taskpilot/taskpilot/internal/task"
	"github.com/taskpilot/taskpilot/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := provideLogger(cfg)

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = observability.SetupTracing(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	a.Conversations = conversation.New(pool, logger)
	a.Tasks = task.New(pool, logger)

	registry, err := provideRegistry(a.Tasks, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	generator, err := llm.New(ctx, cfg, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing model generator: %w", err)
	}

	executor := agent.NewExecutor(registry, logger)
	a.Orchestrator = agent.NewOrchestrator(generator, executor,
		agent.WithSystem(chat.SystemPrompt()),
		agent.WithMaxTurns(cfg.MaxTurns),
		agent.WithPolicy(providePolicy(cfg)),
		agent.WithLimiter(provideLimiter(cfg)),
		agent.WithLogger(logger),
	)

	a.Chat = chat.New(a.Conversations, a.Orchestrator, cfg.HistoryLimit, logger)
	a.Verifier = auth.NewVerifier([]byte(cfg.AuthSecret))

	a.Server = api.NewServer(api.ServerConfig{
		Chat:          a.Chat,
		Conversations: a.Conversations,
		Verifier:      a.Verifier,
		DB:            pool,
		Logger:        logger,
	})

	return a, nil
}

func provideLogger(cfg *config.Config) log.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnString())
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("database pool ready",
		"host", cfg.PostgresHost, "database", cfg.PostgresDBName)

	return pool, pool.Close, nil
}

// provideRegistry registers every tool the model may call.
func provideRegistry(tasks *task.Store, logger log.Logger) (*agent.Registry, error) {
	registry := agent.NewRegistry()

	if err := tools.NewTaskTools(tasks, logger).Register(registry); err != nil {
		return nil, fmt.Errorf("registering task tools: %w", err)
	}

	web := tools.NewWebTools(&http.Client{Timeout: 30 * time.Second}, logger)
	if err := web.Register(registry); err != nil {
		return nil, fmt.Errorf("registering web tools: %w", err)
	}

	return registry, nil
}

// provideLimiter paces model calls. A zero rate means unlimited rather
// than a limiter that never admits anything.
func provideLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
}

func providePolicy(cfg *config.Config) agent.Policy {
	p := agent.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		p.MaxRetries = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialDelay > 0 {
		p.InitialInterval = cfg.RetryInitialDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxInterval = cfg.RetryMaxDelay
	}
	return p
}
