// Package tools provides the local toolset registered alongside remote MCP
// tools, so the assistant keeps at least one callable tool when the remote
// server is unreachable.
package tools

import (
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// CurrentTimeName is the Genkit tool name for retrieving the current time.
const CurrentTimeName = "current_time"

// CurrentTimeInput defines input for the current_time tool (no input needed).
type CurrentTimeInput struct{}

// CurrentTimeOutput is the structured result of the current_time tool.
type CurrentTimeOutput struct {
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	ISO8601   string `json:"iso8601"`
	Timezone  string `json:"timezone"`
}

// Clock holds dependencies for the time tool handler. The now function is
// injectable for tests.
type Clock struct {
	now    func() time.Time
	logger log.Logger
}

// NewClock creates a Clock using the system time.
func NewClock(logger log.Logger) *Clock {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Clock{
		now:    time.Now,
		logger: logger.With("component", "tools"),
	}
}

// RegisterClock registers the local time tool with Genkit.
func RegisterClock(g *genkit.Genkit, c *Clock) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if c == nil {
		return nil, fmt.Errorf("clock is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, CurrentTimeName,
			"Get the current system date and time. "+
				"Returns: formatted time string, Unix timestamp, ISO 8601 format, and time zone. "+
				"Use this to: resolve relative dates such as 'today' or 'next Friday' before creating or querying tasks with due dates.",
			c.CurrentTime),
	}, nil
}

// CurrentTime returns the current system date and time in multiple formats.
func (c *Clock) CurrentTime(_ *ai.ToolContext, _ CurrentTimeInput) (CurrentTimeOutput, error) {
	now := c.now()
	zone, _ := now.Zone()
	c.logger.Debug("CurrentTime called")
	return CurrentTimeOutput{
		Time:      now.Format("2006-01-02 15:04:05"),
		Timestamp: now.Unix(),
		ISO8601:   now.Format(time.RFC3339),
		Timezone:  zone,
	}, nil
}
