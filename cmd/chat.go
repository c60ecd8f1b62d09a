package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
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
	"github.com/clickchat-ai/clickchat/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	ui.PrintWithInfo(Version, cfg.FullModelName())

	names := a.Registry.Names(ctx)
	fmt.Printf("%d tool(s) available: %s\n", len(names), strings.Join(names, ", "))
	fmt.Println("Type /help for commands, Ctrl+D to quit.")
	fmt.Println()

	threadID := store.NewThreadID()
	fmt.Printf("Thread: %s\n\n", threadID)

	renderer := ui.NewMarkdown(100)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			exit, newID := handleChatCommand(ctx, input, a, threadID)
			if exit {
				break
			}
			if newID != "" {
				threadID = newID
			}
			continue
		}

		events := &orchestrator.Events{
			OnToolCall: func(call orchestrator.ToolCall) {
				fmt.Printf("  ⚙ %s…\n", call.Name)
			},
			OnToolResult: func(call orchestrator.ToolCall) {
				if call.Err != "" {
					fmt.Printf("  ✗ %s: %s\n", call.Name, call.Err)
				} else {
					fmt.Printf("  ✓ %s\n", call.Name)
				}
			},
		}

		result, err := a.Engine.Run(ctx, threadID, input, events)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Println(renderer.Render(result.FinalText))
		fmt.Println()
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

// handleChatCommand handles slash commands. Returns (exit, newThreadID);
// newThreadID is empty when the thread did not change.
func handleChatCommand(ctx context.Context, input string, a *app.App, threadID string) (bool, string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, ""
	}

	switch parts[0] {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /new             start a new conversation")
		fmt.Println("  /threads         list stored conversations")
		fmt.Println("  /switch <id>     resume a stored conversation")
		fmt.Println("  /tools           show available tools")
		fmt.Println("  /exit, /quit     leave")
		fmt.Println()

	case "/new":
		id := store.NewThreadID()
		fmt.Printf("New thread: %s\n\n", id)
		return false, id

	case "/threads":
		threads, err := a.Store.ListThreads(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false, ""
		}
		if len(threads) == 0 {
			fmt.Println("No stored conversations yet.")
			fmt.Println()
			return false, ""
		}
		for _, t := range threads {
			marker := " "
			if t.ID == threadID {
				marker = "*"
			}
			title := t.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s %s  %-40s %d message(s)\n", marker, t.ID, title, t.MessageCount)
		}
		fmt.Println()

	case "/switch":
		if len(parts) < 2 {
			fmt.Println("Usage: /switch <thread-id>")
			fmt.Println()
			return false, ""
		}
		id := parts[1]
		if _, err := a.Store.GetThread(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false, ""
		}
		fmt.Printf("Resumed thread: %s\n\n", id)
		return false, id

	case "/tools":
		names := a.Registry.Names(ctx)
		fmt.Printf("%d tool(s) available:\n", len(names))
		for _, name := range names {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println()

	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true, ""

	default:
		fmt.Printf("Unknown command: %s\n", parts[0])
		fmt.Println("Type /help to see available commands")
		fmt.Println()
	}

	return false, ""
}
