package orchestrator

import "errors"

var (
	// ErrMaxTurns indicates the model kept requesting tools past the
	// configured turn bound. Nothing is committed when this is returned.
	ErrMaxTurns = errors.New("max turns exceeded")

	// ErrEmptyInput indicates Run was called with blank user text.
	ErrEmptyInput = errors.New("empty user input")
)
