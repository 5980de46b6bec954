// Package sqlite provides a SQLite-backed saved-game store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/century/internal/store"
)

//go:embed schema.sql
var schema string

// Store persists saved games in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a new saved game and returns its id.
func (s *Store) Create(ctx context.Context, userID string, state []byte, meta store.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	meta, err := store.PrepareCreate(userID, state, meta)
	if err != nil {
		return "", err
	}
	names, err := json.Marshal(meta.PlayerNames)
	if err != nil {
		return "", fmt.Errorf("encode player names: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO saved_games (
		   id, user_id, game_state, player_names,
		   is_completed, winner_name, total_rounds,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID,
		meta.UserID,
		string(state),
		string(names),
		meta.IsCompleted,
		meta.WinnerName,
		meta.TotalRounds,
		toMillis(meta.CreatedAt),
		toMillis(meta.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("create saved game: %w", err)
	}
	return meta.ID, nil
}

// Update replaces the state and metadata of an existing saved game.
func (s *Store) Update(ctx context.Context, id string, state []byte, meta store.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := store.PrepareUpdate(id, state, meta)
	if err != nil {
		return err
	}
	names, err := json.Marshal(meta.PlayerNames)
	if err != nil {
		return fmt.Errorf("encode player names: %w", err)
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE saved_games
		    SET game_state = ?, player_names = ?, is_completed = ?,
		        winner_name = ?, total_rounds = ?, updated_at = ?
		  WHERE id = ?`,
		string(state),
		string(names),
		meta.IsCompleted,
		meta.WinnerName,
		meta.TotalRounds,
		toMillis(meta.UpdatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update saved game: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update saved game: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

// List returns a user's saved games, most recently updated first.
func (s *Store) List(ctx context.Context, userID string) ([]store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, user_id, player_names, is_completed, winner_name,
		        total_rounds, created_at, updated_at
		   FROM saved_games
		  WHERE user_id = ?
		  ORDER BY updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved games: %w", err)
	}
	defer rows.Close()

	var out []store.Metadata
	for rows.Next() {
		meta, err := scanMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list saved games: %w", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saved games: %w", err)
	}
	return out, nil
}

// Get returns one saved game including its state.
func (s *Store) Get(ctx context.Context, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, player_names, is_completed, winner_name,
		        total_rounds, created_at, updated_at, game_state
		   FROM saved_games
		  WHERE id = ?`,
		id,
	)

	var state string
	meta, err := scanMetadata(func(dest ...any) error {
		return row.Scan(append(dest, &state)...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return store.Record{}, fmt.Errorf("get saved game: %w", err)
	}
	return store.Record{Metadata: meta, State: json.RawMessage(state)}, nil
}

// Delete removes a saved game.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM saved_games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved game: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved game: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func scanMetadata(scan func(dest ...any) error) (store.Metadata, error) {
	var meta store.Metadata
	var names string
	var createdAt, updatedAt int64
	err := scan(
		&meta.ID,
		&meta.UserID,
		&names,
		&meta.IsCompleted,
		&meta.WinnerName,
		&meta.TotalRounds,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return store.Metadata{}, err
	}
	if err := json.Unmarshal([]byte(names), &meta.PlayerNames); err != nil {
		return store.Metadata{}, fmt.Errorf("decode player names: %w", err)
	}
	meta.CreatedAt = fromMillis(createdAt)
	meta.UpdatedAt = fromMillis(updatedAt)
	return meta, nil
}
