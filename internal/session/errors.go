package session

import "errors"

var (
	// ErrPersistenceFailure wraps any store error. The in-memory game is
	// never changed when it is returned.
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrNotAuthenticated = errors.New("not signed in")
	ErrCancelled        = errors.New("cancelled")
	ErrSessionConcluded = errors.New("game is over")
	ErrGameCompleted    = errors.New("saved game is already completed")
	ErrCorruptState     = errors.New("saved game state is corrupt")
)
