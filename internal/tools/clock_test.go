package tools

import (
	"context"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/clickchat-ai/clickchat/internal/log"
)

func TestClock_CurrentTime(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC)
	c := &Clock{
		now:    func() time.Time { return fixed },
		logger: log.NewNop(),
	}

	out, err := c.CurrentTime(nil, CurrentTimeInput{})
	if err != nil {
		t.Fatalf("CurrentTime() error: %v", err)
	}

	if out.Time != "2026-08-25 14:30:05" {
		t.Errorf("Time = %q, want %q", out.Time, "2026-08-25 14:30:05")
	}
	if out.Timestamp != fixed.Unix() {
		t.Errorf("Timestamp = %d, want %d", out.Timestamp, fixed.Unix())
	}
	if out.ISO8601 != "2026-08-25T14:30:05Z" {
		t.Errorf("ISO8601 = %q, want %q", out.ISO8601, "2026-08-25T14:30:05Z")
	}
	if out.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want %q", out.Timezone, "UTC")
	}
}

func TestRegisterClock(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())

	registered, err := RegisterClock(g, NewClock(log.NewNop()))
	if err != nil {
		t.Fatalf("RegisterClock() error: %v", err)
	}
	if len(registered) != 1 {
		t.Fatalf("RegisterClock() returned %d tools, want 1", len(registered))
	}
	if got := registered[0].Name(); got != CurrentTimeName {
		t.Errorf("tool name = %q, want %q", got, CurrentTimeName)
	}
}

func TestRegisterClock_Validation(t *testing.T) {
	t.Parallel()

	if _, err := RegisterClock(nil, NewClock(nil)); err == nil {
		t.Error("RegisterClock() with nil genkit succeeded, want error")
	}

	g := genkit.Init(context.Background())
	if _, err := RegisterClock(g, nil); err == nil {
		t.Error("RegisterClock() with nil clock succeeded, want error")
	}
}
