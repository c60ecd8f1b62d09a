// Package llm wraps the Genkit completion API behind a single-exchange
// client.
//
// Tool auto-execution is disabled on every request: the response either
// carries a terminal answer or tool requests, and the orchestration loop
// decides what happens next. The client never retries; completion errors
// surface to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// Config contains all required parameters for the completion client.
type Config struct {
	Genkit *genkit.Genkit
	Logger log.Logger

	// ModelName is the provider-qualified model name,
	// e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// SystemPrompt is sent with every request. Optional.
	SystemPrompt string

	// RateLimiter optionally throttles outgoing requests. Nil disables
	// throttling.
	RateLimiter *rate.Limiter
}

// validate checks that all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Client performs one completion exchange per call.
// Safe for concurrent use; all state is captured at construction.
type Client struct {
	g            *genkit.Genkit
	modelName    string
	systemPrompt string
	limiter      *rate.Limiter
	logger       log.Logger
}

// New creates a completion client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		g:            cfg.Genkit,
		modelName:    cfg.ModelName,
		systemPrompt: cfg.SystemPrompt,
		limiter:      cfg.RateLimiter,
		logger:       logger.With("component", "llm"),
	}, nil
}

// ModelName returns the provider-qualified model name.
func (c *Client) ModelName() string {
	return c.modelName
}

// Complete sends the history plus tool declarations to the model and returns
// the raw response. Tool requests in the response are NOT executed; the
// caller owns the loop. A non-nil stream callback receives text chunks as
// they arrive.
func (c *Client) Complete(ctx context.Context, history []*ai.Message, tools []ai.ToolRef, stream ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// CRITICAL: Genkit's renderMessages() modifies msg.Content in-place,
	// so concurrent requests sharing history objects would race. Copy each
	// message, not just the slice.
	messages := deepCopyMessages(history)

	opts := []ai.GenerateOption{
		ai.WithMessages(messages...),
		ai.WithModelName(c.modelName),
		ai.WithReturnToolRequests(true),
	}
	if c.systemPrompt != "" {
		opts = append(opts, ai.WithSystem(c.systemPrompt))
	}
	if len(tools) > 0 {
		opts = append(opts, ai.WithTools(tools...))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(stream))
	}

	c.logger.Debug("requesting completion",
		"model", c.modelName,
		"history_len", len(messages),
		"tool_count", len(tools),
		"streaming", stream != nil,
	)

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating completion: %w", err)
	}
	return resp, nil
}

// deepCopyMessages creates independent copies of Message and Part structs.
//
// WORKAROUND: Genkit's renderMessages() modifies msg.Content in-place,
// causing data races in concurrent executions. Tested against
// github.com/firebase/genkit/go v1.4.0; re-check with the race detector
// after upgrading before removing.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil // Preserve nil vs empty slice semantics
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart creates an independent copy of an ai.Part struct.
//
// ToolRequest.Input and ToolResponse.Output are type `any` and copied by
// reference: renderMessages only mutates the Content slice, not tool data.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input,
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output,
			Ref:    p.ToolResponse.Ref,
		}
	}
	if p.Resource != nil {
		cp.Resource = &ai.ResourcePart{Uri: p.Resource.Uri}
	}
	return cp
}

// shallowCopyMap copies map keys and values but not nested structures.
func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
