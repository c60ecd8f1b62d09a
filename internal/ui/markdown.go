package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown converts Markdown to styled terminal output. Caches the glamour
// renderer and recreates it only when the width changes.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a renderer with terminal-appropriate styling.
// A nil internal renderer means initialization failed; Render then degrades
// to plain text.
func NewMarkdown(width int) *Markdown {
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark terminal
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{width: width}
	}

	return &Markdown{renderer: r, width: width}
}

// Render converts Markdown to styled terminal output.
// Returns the original text if rendering fails.
func (m *Markdown) Render(markdown string) string {
	if m == nil || m.renderer == nil {
		return markdown
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}

	// Trim trailing newlines added by glamour
	return strings.TrimSuffix(rendered, "\n")
}
