// Package storetest holds the behaviour every saved-game backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/century/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2026, time.March, 4, 20, 15, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		state := []byte(`{"players":[{"name":"A","score":15,"eliminated":false}]}`)

		id, err := s.Create(ctx, "user-1", state, store.Metadata{
			PlayerNames: []string{"A", "B"},
			TotalRounds: 1,
			UpdatedAt:   base,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Equal(t, []string{"A", "B"}, rec.PlayerNames)
		assert.Equal(t, 1, rec.TotalRounds)
		assert.False(t, rec.IsCompleted)
		assert.True(t, base.Equal(rec.CreatedAt), "created_at = %s", rec.CreatedAt)
		assert.True(t, base.Equal(rec.UpdatedAt), "updated_at = %s", rec.UpdatedAt)
		assert.JSONEq(t, string(state), string(rec.State))
	})

	t.Run("update keeps owner and creation time", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "user-1", []byte(`{}`), store.Metadata{PlayerNames: []string{"A", "B"}, UpdatedAt: base})
		require.NoError(t, err)

		later := base.Add(time.Minute)
		err = s.Update(ctx, id, []byte(`{"round":2}`), store.Metadata{
			PlayerNames: []string{"A", "B"},
			IsCompleted: true,
			WinnerName:  "B",
			TotalRounds: 2,
			UpdatedAt:   later,
		})
		require.NoError(t, err)

		rec, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "user-1", rec.UserID)
		assert.True(t, rec.IsCompleted)
		assert.Equal(t, "B", rec.WinnerName)
		assert.Equal(t, 2, rec.TotalRounds)
		assert.True(t, base.Equal(rec.CreatedAt))
		assert.True(t, later.Equal(rec.UpdatedAt))
		assert.JSONEq(t, `{"round":2}`, string(rec.State))
	})

	t.Run("list is per user and newest first", func(t *testing.T) {
		s := newStore(t)
		older, err := s.Create(ctx, "user-1", []byte(`{}`), store.Metadata{PlayerNames: []string{"A", "B"}, UpdatedAt: base})
		require.NoError(t, err)
		newer, err := s.Create(ctx, "user-1", []byte(`{}`), store.Metadata{PlayerNames: []string{"C", "D"}, UpdatedAt: base.Add(time.Hour)})
		require.NoError(t, err)
		_, err = s.Create(ctx, "user-2", []byte(`{}`), store.Metadata{PlayerNames: []string{"E", "F"}, UpdatedAt: base})
		require.NoError(t, err)

		list, err := s.List(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer, list[0].ID)
		assert.Equal(t, older, list[1].ID)

		require.NoError(t, s.Update(ctx, older, []byte(`{}`), store.Metadata{PlayerNames: []string{"A", "B"}, UpdatedAt: base.Add(2 * time.Hour)}))
		list, err = s.List(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, older, list[0].ID)

		list, err = s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, "user-1", []byte(`{}`), store.Metadata{UpdatedAt: base})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, id), store.ErrNotFound)
	})

	t.Run("missing records", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		err = s.Update(ctx, "missing", []byte(`{}`), store.Metadata{})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "", []byte(`{}`), store.Metadata{})
		assert.ErrorIs(t, err, store.ErrInvalidRecord)
		_, err = s.Create(ctx, "user-1", []byte(`{not json`), store.Metadata{})
		assert.ErrorIs(t, err, store.ErrInvalidRecord)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Create(cctx, "user-1", []byte(`{}`), store.Metadata{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
