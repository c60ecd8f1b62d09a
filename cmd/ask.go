package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clickchat-ai/clickchat/internal/app"
	"github.com/clickchat-ai/clickchat/internal/config"
	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/orchestrator"
	"github.com/clickchat-ai/clickchat/internal/store"
)

var askThreadID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askThreadID, "thread", "", "Continue an existing thread instead of starting a new one")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	question := strings.Join(args, " ")

	threadID := askThreadID
	if threadID == "" {
		threadID = store.NewThreadID()
	}

	events := &orchestrator.Events{
		OnToolCall: func(call orchestrator.ToolCall) {
			fmt.Fprintf(os.Stderr, "⚙ %s…\n", call.Name)
		},
	}

	result, err := a.Engine.Run(ctx, threadID, question, events)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	fmt.Println(result.FinalText)
	return nil
}
