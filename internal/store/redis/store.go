// Package redis provides a Redis-backed saved-game store.
//
// Each saved game is a JSON document under <prefix>:game:<id>; a sorted set
// per user, scored by the update time in milliseconds, backs listing.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/lox/century/internal/store"
)

const defaultPrefix = "century"

// Options configures the connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store persists saved games in Redis
type Store struct {
	rdclient *redis.Client
	prefix   string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	rdclient := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdclient.Ping(ctx).Err(); err != nil {
		_ = rdclient.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{rdclient: rdclient, prefix: opts.Prefix}, nil
}

func (s *Store) gameKey(id string) string {
	return fmt.Sprintf("%s:game:%s", s.prefix, id)
}

func (s *Store) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:games", s.prefix, userID)
}

func (s *Store) Create(ctx context.Context, userID string, state []byte, meta store.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	meta, err := store.PrepareCreate(userID, state, meta)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, store.Record{Metadata: meta, State: state}); err != nil {
		return "", fmt.Errorf("create saved game: %w", err)
	}
	return meta.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, state []byte, meta store.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := store.PrepareUpdate(id, state, meta)
	if err != nil {
		return err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	meta.ID = existing.ID
	meta.UserID = existing.UserID
	meta.CreatedAt = existing.CreatedAt
	if err := s.save(ctx, store.Record{Metadata: meta, State: state}); err != nil {
		return fmt.Errorf("update saved game: %w", err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.rdclient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.gameKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, s.userKey(rec.UserID), &redis.Z{
			Score:  float64(rec.UpdatedAt.UnixMilli()),
			Member: rec.ID,
		})
		return nil
	})
	return err
}

func (s *Store) List(ctx context.Context, userID string) ([]store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.rdclient.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list saved games: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.gameKey(id)
	}
	values, err := s.rdclient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list saved games: %w", err)
	}

	out := make([]store.Metadata, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document, left behind by an interrupted delete
			continue
		}
		var rec store.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode saved game %s: %w", ids[i], err)
		}
		out = append(out, rec.Metadata)
	}
	store.SortByUpdated(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}
	raw, err := s.rdclient.Get(ctx, s.gameKey(id)).Result()
	if err == redis.Nil {
		return store.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	} else if err != nil {
		return store.Record{}, fmt.Errorf("get saved game: %w", err)
	}
	var rec store.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return store.Record{}, fmt.Errorf("decode saved game %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.rdclient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.gameKey(id))
		pipe.ZRem(ctx, s.userKey(rec.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete saved game: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdclient.Close()
}
