// Package registry merges local tools and remote MCP tools behind one
// name-indexed view.
//
// The MCP connection is opened once per process and the tool list is cached
// for the process lifetime. Loading tools fails soft: a dead or unreachable
// MCP server yields an empty remote tool list, never a startup error.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/clickchat-ai/clickchat/internal/config"
	"github.com/clickchat-ai/clickchat/internal/log"
)

// toolHost is the slice of the MCP host the registry needs. Defined here so
// tests can substitute a fake.
type toolHost interface {
	GetActiveTools(ctx context.Context, g *genkit.Genkit) ([]ai.Tool, error)
	Disconnect(ctx context.Context, serverName string) error
}

// Config holds registry construction parameters.
type Config struct {
	Genkit  *genkit.Genkit
	Logger  log.Logger
	Servers []config.MCPServer
	Local   []ai.Tool
}

// Registry resolves tools by name for the orchestration loop and reports
// tool availability to the UI.
type Registry struct {
	g       *genkit.Genkit
	host    toolHost
	servers []config.MCPServer
	local   []ai.Tool
	logger  log.Logger

	mu     sync.Mutex
	loaded bool
	tools  map[string]ai.Tool
	order  []string
}

// New creates a Registry and opens the MCP host session. A host that cannot
// even be constructed is treated the same as a server that fails later:
// logged, and the registry continues with local tools only.
func New(cfg Config) (*Registry, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With("component", "registry")

	r := &Registry{
		g:       cfg.Genkit,
		servers: cfg.Servers,
		local:   cfg.Local,
		logger:  logger,
	}

	if len(cfg.Servers) > 0 {
		serverConfigs := make([]mcp.MCPServerConfig, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			serverConfigs = append(serverConfigs, mcp.MCPServerConfig{
				Name:   s.Name,
				Config: s.ClientOptions,
			})
		}

		host, err := mcp.NewMCPHost(cfg.Genkit, mcp.MCPHostOptions{
			Name:       "clickchat",
			Version:    "1.0.0",
			MCPServers: serverConfigs,
		})
		if err != nil {
			logger.Warn("MCP host unavailable, continuing with local tools only",
				"error", err)
		} else {
			r.host = host
		}
	}

	return r, nil
}

// LoadTools retrieves and caches the merged tool list. Remote failures are
// absorbed: the error is logged and only local tools are served. The cache
// is per process; restart to pick up new remote tools.
func (r *Registry) LoadTools(ctx context.Context) []ai.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.snapshot()
	}

	r.tools = make(map[string]ai.Tool)
	r.order = r.order[:0]

	for _, t := range r.local {
		r.add(t)
	}

	if r.host != nil {
		remote, err := r.host.GetActiveTools(ctx, r.g)
		if err != nil {
			r.logger.Warn("failed to load MCP tools, continuing without them",
				"error", err)
		} else {
			for _, t := range remote {
				r.add(t)
			}
			r.logger.Info("loaded MCP tools", "count", len(remote))
		}
	}

	r.loaded = true
	return r.snapshot()
}

// add indexes a tool by name. First registration wins on a name collision.
func (r *Registry) add(t ai.Tool) {
	if t == nil {
		return
	}
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		r.logger.Warn("duplicate tool name ignored", "name", name)
		return
	}
	r.tools[name] = t
	r.order = append(r.order, name)
}

// snapshot returns the cached tools in registration order. Caller holds r.mu.
func (r *Registry) snapshot() []ai.Tool {
	out := make([]ai.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Tools returns the cached tool list, loading it on first use.
func (r *Registry) Tools(ctx context.Context) []ai.Tool {
	return r.LoadTools(ctx)
}

// Refs returns the cached tools as ai.ToolRef for completion requests.
func (r *Registry) Refs(ctx context.Context) []ai.ToolRef {
	tools := r.LoadTools(ctx)
	refs := make([]ai.ToolRef, 0, len(tools))
	for _, t := range tools {
		refs = append(refs, t)
	}
	return refs
}

// Lookup resolves a tool by name. The second return reports whether the name
// is known.
func (r *Registry) Lookup(ctx context.Context, name string) (ai.Tool, bool) {
	r.LoadTools(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the cached tool names in registration order.
func (r *Registry) Names(ctx context.Context) []string {
	r.LoadTools(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of available tools.
func (r *Registry) Count(ctx context.Context) int {
	return len(r.LoadTools(ctx))
}

// Close disconnects all MCP server sessions.
func (r *Registry) Close(ctx context.Context) error {
	if r.host == nil {
		return nil
	}
	var firstErr error
	for _, s := range r.servers {
		if err := r.host.Disconnect(ctx, s.Name); err != nil {
			r.logger.Warn("failed to disconnect MCP server", "server", s.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("disconnecting MCP server %s: %w", s.Name, err)
			}
		}
	}
	return firstErr
}
