// Package app assembles the application: configuration, database, tool
// registry, model generator, orchestrator, and the HTTP API server.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/chat"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/conversation"
	"github.com/taskpilot/taskpilot/internal/log"
	"github.com/taskpilot/taskpilot/internal/task"
)

// App holds the initialized application components.
// Create with Setup; release with Close.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool        *pgxpool.Pool
	Conversations *conversation.Store
	Tasks         *task.Store

	Registry     *agent.Registry
	Orchestrator *agent.Orchestrator

	Chat     *chat.Service
	Verifier *auth.Verifier
	Server   *api.Server

	otelCleanup func()
	dbCleanup   func()
}

// Close releases resources in reverse initialization order.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
