package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/clickchat-ai/clickchat/internal/log"
)

// maxTitleLength bounds the thread title derived from the first user message.
const maxTitleLength = 80

// Store manages thread persistence on a sqlite database.
//
// Store is safe for concurrent use by multiple goroutines; sqlite serializes
// writers underneath.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// New creates a Store on an opened, migrated database.
func New(db *sql.DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// NewThreadID generates a thread id from the current time,
// e.g. "thread_20260825_143005".
func NewThreadID() string {
	return "thread_" + time.Now().Format("20060102_150405")
}

// Append adds messages to a thread in one transaction, creating the thread
// implicitly on first append. Messages receive contiguous sequence numbers;
// either the whole batch is committed or none of it is.
func (s *Store) Append(ctx context.Context, threadID string, messages []*ai.Message) error {
	if threadID == "" {
		return ErrEmptyThreadID
	}
	if len(messages) == 0 {
		return nil
	}
	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("%w: message at index %d", ErrNilMessage, i)
		}
		for j, part := range msg.Content {
			if part == nil {
				return fmt.Errorf("%w: message %d has nil content at index %d", ErrNilMessage, i, j)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after commit.
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	now := time.Now().UTC()

	// Create the thread on first append; later appends only bump updated_at.
	title := titleFromMessages(messages)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO threads (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		threadID, title, now, now,
	); err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE thread_id = ?`, threadID,
	).Scan(&maxSeq); err != nil {
		return fmt.Errorf("failed to read max sequence: %w", err)
	}

	seq := int(maxSeq.Int64)
	for i, msg := range messages {
		contentJSON, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal message content at index %d: %w", i, err)
		}

		seq++
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, thread_id, seq, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), threadID, seq, string(msg.Role), string(contentJSON), now,
		); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("appended messages", "thread_id", threadID, "count", len(messages))
	return nil
}

// History returns all messages of a thread in append order. A thread with no
// messages (or an unknown thread) yields an empty slice.
func (s *Store) History(ctx context.Context, threadID string) ([]*ai.Message, error) {
	if threadID == "" {
		return nil, ErrEmptyThreadID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE thread_id = ? ORDER BY seq ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []*ai.Message
	for rows.Next() {
		var role, contentJSON string
		if err := rows.Scan(&role, &contentJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		var content []*ai.Part
		if err := json.Unmarshal([]byte(contentJSON), &content); err != nil {
			s.logger.Warn("skipping message with malformed content",
				"thread_id", threadID, "error", err)
			continue
		}

		messages = append(messages, &ai.Message{
			Role:    ai.Role(role),
			Content: content,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Messages returns the full application-level message records of a thread,
// ordered by sequence number. Used by the web UI and the threads command.
func (s *Store) Messages(ctx context.Context, threadID string) ([]*Message, error) {
	if threadID == "" {
		return nil, ErrEmptyThreadID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, seq, role, content, created_at
		 FROM messages WHERE thread_id = ? ORDER BY seq ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		var contentJSON string
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.Role, &contentJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(contentJSON), &m.Content); err != nil {
			s.logger.Warn("skipping message with malformed content",
				"message_id", m.ID, "error", err)
			continue
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// ListThreads returns all threads ordered by last activity, newest first.
func (s *Store) ListThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.created_at, t.updated_at, COUNT(m.id)
		 FROM threads t
		 LEFT JOIN messages m ON m.thread_id = t.id
		 GROUP BY t.id
		 ORDER BY t.updated_at DESC, t.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []*Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt, &t.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}

	return threads, nil
}

// ThreadIDs returns the ids of all known threads, newest first. Calling it
// twice without an intervening Append yields the same result.
func (s *Store) ThreadIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM threads ORDER BY updated_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate thread ids: %w", err)
	}

	return ids, nil
}

// GetThread retrieves a single thread by id.
func (s *Store) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	if threadID == "" {
		return nil, ErrEmptyThreadID
	}

	var t Thread
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.title, t.created_at, t.updated_at, COUNT(m.id)
		 FROM threads t
		 LEFT JOIN messages m ON m.thread_id = t.id
		 WHERE t.id = ?
		 GROUP BY t.id`,
		threadID,
	).Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt, &t.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	return &t, nil
}

// titleFromMessages derives a display title from the first user text part in
// the batch. Only the batch that creates the thread contributes a title; the
// upsert in Append never overwrites an existing one.
func titleFromMessages(messages []*ai.Message) string {
	for _, msg := range messages {
		if msg.Role != ai.RoleUser {
			continue
		}
		for _, part := range msg.Content {
			if part.IsText() && strings.TrimSpace(part.Text) != "" {
				return truncate(strings.TrimSpace(part.Text), maxTitleLength)
			}
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
