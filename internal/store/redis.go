package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"skycast/internal/types"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore keeps each record as one JSON document under a fixed key.
// Malformed stored JSON is treated as absent rather than surfaced.
type RedisStore struct {
	rc     *redis.Client
	logger *zap.SugaredLogger
}

func NewRedisStore(rc *redis.Client, logger *zap.SugaredLogger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisStore{rc: rc, logger: logger}
}

func (s *RedisStore) Favorites(ctx context.Context) ([]types.FavoriteCity, error) {
	return readDoc[[]types.FavoriteCity](ctx, s, keyFavorites)
}

func (s *RedisStore) AddFavorite(ctx context.Context, fav types.FavoriteCity) error {
	favs, err := s.Favorites(ctx)
	if err != nil {
		return err
	}
	favs, err = appendFavorite(favs, fav)
	if err != nil {
		return err
	}
	return s.writeDoc(ctx, keyFavorites, favs)
}

func (s *RedisStore) RemoveFavorite(ctx context.Context, id string) error {
	favs, err := s.Favorites(ctx)
	if err != nil {
		return err
	}
	favs, removed := removeFavorite(favs, id)
	if !removed {
		return fmt.Errorf("favorite %v: %w", id, ErrNotFound)
	}
	return s.writeDoc(ctx, keyFavorites, favs)
}

func (s *RedisStore) History(ctx context.Context) ([]string, error) {
	return readDoc[[]string](ctx, s, keyHistory)
}

func (s *RedisStore) PushHistory(ctx context.Context, entry string) error {
	history, err := s.History(ctx)
	if err != nil {
		return err
	}
	return s.writeDoc(ctx, keyHistory, pushHistory(history, entry))
}

func (s *RedisStore) Snapshot(ctx context.Context) (types.Snapshot, error) {
	snap, err := readDoc[*types.Snapshot](ctx, s, keySnapshot)
	if err != nil {
		return types.Snapshot{}, err
	}
	if snap == nil {
		return types.Snapshot{}, ErrNotFound
	}
	return *snap, nil
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	return s.writeDoc(ctx, keySnapshot, snap)
}

// readDoc returns the zero value when the key is absent or its document no
// longer parses.
func readDoc[T any](ctx context.Context, s *RedisStore, key string) (T, error) {
	var zero T
	raw, err := s.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("reading %v: %w", key, err)
	}
	return decodeDoc[T](s.logger, key, []byte(raw)), nil
}

// decodeDoc parses a stored document. A document that fails to decode is
// reported as absent in full; json.Unmarshal may have populated part of its
// target before erroring, so the partial value is discarded.
func decodeDoc[T any](logger *zap.SugaredLogger, key string, raw []byte) T {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warnw("discarding malformed stored document",
			"key", key, "error", err.Error())
		var zero T
		return zero
	}
	return v
}

func (s *RedisStore) writeDoc(ctx context.Context, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializing %v: %w", key, err)
	}
	if err := s.rc.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing %v: %w", key, err)
	}
	return nil
}
