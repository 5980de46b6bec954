// Package store persists saved games. A saved game is an opaque JSON state
// blob plus metadata that can be listed without decoding the blob.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates no saved game has the requested id.
	ErrNotFound = errors.New("store: saved game not found")

	// ErrInvalidRecord indicates the caller passed an incomplete record.
	ErrInvalidRecord = errors.New("store: invalid record")
)

// Metadata describes a saved game for listings
type Metadata struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PlayerNames []string  `json:"player_names"`
	IsCompleted bool      `json:"is_completed"`
	WinnerName  string    `json:"winner_name,omitempty"`
	TotalRounds int       `json:"total_rounds"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Record is a saved game with its state blob
type Record struct {
	Metadata
	State json.RawMessage `json:"game_state"`
}

// Store is implemented by every saved-game backend.
//
// List returns the user's games ordered by UpdatedAt, newest first.
// Create and Update use meta.UpdatedAt as the modification time, falling back
// to the current time when it is zero.
type Store interface {
	Create(ctx context.Context, userID string, state []byte, meta Metadata) (string, error)
	Update(ctx context.Context, id string, state []byte, meta Metadata) error
	List(ctx context.Context, userID string) ([]Metadata, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID returns a time-ordered identifier for a new saved game.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// PrepareCreate validates a create request and fills in the id and timestamps.
func PrepareCreate(userID string, state []byte, meta Metadata) (Metadata, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Metadata{}, fmt.Errorf("%w: user id is required", ErrInvalidRecord)
	}
	if !json.Valid(state) {
		return Metadata{}, fmt.Errorf("%w: state must be valid JSON", ErrInvalidRecord)
	}
	meta.ID = NewID()
	meta.UserID = userID
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	meta.CreatedAt = meta.UpdatedAt
	meta.PlayerNames = append([]string(nil), meta.PlayerNames...)
	return meta, nil
}

// PrepareUpdate validates an update request and normalises its timestamp.
func PrepareUpdate(id string, state []byte, meta Metadata) (Metadata, error) {
	if strings.TrimSpace(id) == "" {
		return Metadata{}, fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if !json.Valid(state) {
		return Metadata{}, fmt.Errorf("%w: state must be valid JSON", ErrInvalidRecord)
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	meta.PlayerNames = append([]string(nil), meta.PlayerNames...)
	return meta, nil
}
