package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/clickchat-ai/clickchat/internal/config"
	"github.com/clickchat-ai/clickchat/internal/database"
	"github.com/clickchat-ai/clickchat/internal/log"
	"github.com/clickchat-ai/clickchat/internal/store"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect stored conversations",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	RunE:  runThreadsList,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

func init() {
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	rootCmd.AddCommand(threadsCmd)
}

// openStore opens the thread store without touching the LLM or MCP stack;
// inspecting local history needs neither an API key nor a network.
func openStore() (*store.Store, func(), error) {
	cfg := &config.Config{}
	loaded, err := config.Load()
	if err == nil {
		cfg = loaded
	} else {
		// Config validation requires an API key, which listing threads
		// doesn't need. Fall back to the default database location.
		home, herr := homeDatabasePath()
		if herr != nil {
			return nil, nil, herr
		}
		cfg.DatabasePath = home
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	cleanup := func() { _ = db.Close() }
	return store.New(db, log.New(log.Config{})), cleanup, nil
}

// homeDatabasePath returns the default database location.
func homeDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".clickchat", "chatbot.db"), nil
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	threads, err := s.ListThreads(context.Background())
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	if len(threads) == 0 {
		fmt.Println("No stored conversations.")
		return nil
	}

	for _, t := range threads {
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-40s %d message(s)  updated %s\n",
			t.ID, title, t.MessageCount, t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	threadID := args[0]

	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return err
	}

	title := thread.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("%s — %s\n\n", thread.ID, title)

	messages, err := s.Messages(ctx, threadID)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	for _, m := range messages {
		printTranscriptMessage(m)
	}
	return nil
}

func printTranscriptMessage(m *store.Message) {
	for _, part := range m.Content {
		switch {
		case part.IsText() && strings.TrimSpace(part.Text) != "":
			fmt.Printf("[%s] %s\n", m.Role, part.Text)
		case part.Kind == ai.PartToolRequest && part.ToolRequest != nil:
			fmt.Printf("[%s] → tool %s(%v)\n", m.Role, part.ToolRequest.Name, part.ToolRequest.Input)
		case part.Kind == ai.PartToolResponse && part.ToolResponse != nil:
			fmt.Printf("[%s] ← tool %s\n", m.Role, part.ToolResponse.Name)
		}
	}
}
