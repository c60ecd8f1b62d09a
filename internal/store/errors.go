package store

import "errors"

var (
	// ErrThreadNotFound indicates the requested thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrEmptyThreadID indicates an operation was called with an empty thread id.
	ErrEmptyThreadID = errors.New("thread id is empty")

	// ErrNilMessage indicates a nil message or nil content part was passed to Append.
	ErrNilMessage = errors.New("nil message")
)
