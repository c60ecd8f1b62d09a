// Package app wires the application components together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/gofrs/flock"

	"github.com/clickchat-ai/clickchat/internal/config"
	"github.com/clickchat-ai/clickchat/internal/llm"
	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/orchestrator"
	"github.com/clickchat-ai/clickchat/internal/registry"
	"github.com/clickchat-ai/clickchat/internal/store"
)

// closeTimeout bounds MCP disconnects during shutdown.
const closeTimeout = 10 * time.Second

// App holds all initialized components. All shared state (tool cache, DB
// handle) lives in explicit objects passed by reference; there are no
// module-level singletons.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	DB       *sql.DB
	Store    *store.Store
	Registry *registry.Registry
	LLM      *llm.Client
	Engine   *orchestrator.Engine

	dbLock *flock.Flock
}

// Close releases resources in reverse initialization order.
// Safe to call multiple times and on a partially initialized App.
func (a *App) Close() error {
	var errs []error

	if a.Registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.Registry.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
		a.Registry = nil
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
		a.DB = nil
	}

	if a.dbLock != nil {
		if err := a.dbLock.Unlock(); err != nil {
			errs = append(errs, err)
		}
		a.dbLock = nil
	}

	return errors.Join(errs...)
}
