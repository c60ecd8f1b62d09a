package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"github.com/clickchat-ai/clickchat/internal/config"
	"github.com/clickchat-ai/clickchat/internal/database"
	"github.com/clickchat-ai/clickchat/internal/llm"
	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/orchestrator"
	"github.com/clickchat-ai/clickchat/internal/registry"
	"github.com/clickchat-ai/clickchat/internal/store"
	"github.com/clickchat-ai/clickchat/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	db, dbLock, err := provideDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.dbLock = dbLock

	a.Store = store.New(db, logger)

	local, err := provideLocalTools(g, logger)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(registry.Config{
		Genkit:  g,
		Logger:  logger,
		Servers: cfg.MCPServers(),
		Local:   local,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool registry: %w", err)
	}
	a.Registry = reg

	client, err := llm.New(llm.Config{
		Genkit:       g,
		Logger:       logger,
		ModelName:    cfg.FullModelName(),
		SystemPrompt: cfg.SystemPrompt,
		RateLimiter:  provideRateLimiter(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	a.LLM = client

	engine, err := orchestrator.New(orchestrator.Config{
		Completer: client,
		Tools:     reg,
		Store:     a.Store,
		Logger:    logger,
		MaxTurns:  cfg.MaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	a.Engine = engine

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default) and openai providers; the openai plugin also
// serves OpenAI-compatible endpoints.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideDatabase opens, locks, and migrates the sqlite database. Open runs
// first so the parent directory exists before the lock file is created; the
// lock is held before any migration touches the schema.
func provideDatabase(cfg *config.Config) (*sql.DB, *flock.Flock, error) {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	dbLock, err := database.Lock(cfg.DatabasePath)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		_ = dbLock.Unlock()
		return nil, nil, err
	}

	return db, dbLock, nil
}

// provideLocalTools registers the local toolset with Genkit.
func provideLocalTools(g *genkit.Genkit, logger log.Logger) ([]ai.Tool, error) {
	clock := tools.NewClock(logger)
	clockTools, err := tools.RegisterClock(g, clock)
	if err != nil {
		return nil, fmt.Errorf("registering clock tools: %w", err)
	}
	return clockTools, nil
}

// provideRateLimiter builds the optional proactive limiter.
func provideRateLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.RateRPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst)
}
