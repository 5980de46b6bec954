package game

import "errors"

var (
	ErrInsufficientPlayers = errors.New("need at least 2 players")
	ErrDuplicatePlayerName = errors.New("player already exists")
	ErrEmptyPlayerName     = errors.New("player name is required")
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrInvalidChecker      = errors.New("checker must be an active player")
	ErrInvalidScore        = errors.New("hand sum out of range")
	ErrMissingScore        = errors.New("hand sum missing for active player")
	ErrDuplicateScore      = errors.New("hand sum given twice for one player")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrSessionNotActive    = errors.New("no game in progress")
)
