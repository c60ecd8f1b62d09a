package database

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another process already holds the database lock.
var ErrLocked = errors.New("database is locked by another process")

// Lock acquires an advisory file lock next to the database file. Two
// processes sharing one sqlite file corrupt each other's write-ahead state,
// so startup takes the lock and holds it for the process lifetime.
//
// The returned lock must be released with Unlock when the process shuts down.
func Lock(dbPath string) (*flock.Flock, error) {
	fl := flock.New(dbPath + ".lock")

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring database lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}

	return fl, nil
}
