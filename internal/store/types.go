// Package store persists conversation threads in the embedded sqlite
// database.
//
// A thread is an append-only sequence of messages. Messages carry Genkit
// []*ai.Part content serialized as JSON, so tool requests and tool responses
// survive a restart with their correlation refs intact.
package store

import (
	"time"

	"github.com/firebase/genkit/go/ai"
)

// Thread represents a conversation thread (application-level type).
type Thread struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message represents a single conversation message.
// Content stores Genkit's ai.Part slice, serialized as JSON in the database.
type Message struct {
	ID        string
	ThreadID  string
	Role      string     // "user" | "model" | "tool" | "system"
	Content   []*ai.Part // Genkit Part slice (stored as JSON)
	Seq       int
	CreatedAt time.Time
}
