package store

import (
	"context"
	"fmt"
	"sync"

	"skycast/internal/types"
)

// MemoryStore is a concurrency-safe in-memory Store used in tests and when
// redis is disabled.
type MemoryStore struct {
	mu        sync.RWMutex
	favorites []types.FavoriteCity
	history   []string
	snapshot  *types.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Favorites(ctx context.Context) ([]types.FavoriteCity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.FavoriteCity, len(s.favorites))
	copy(out, s.favorites)
	return out, nil
}

func (s *MemoryStore) AddFavorite(ctx context.Context, fav types.FavoriteCity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := appendFavorite(s.favorites, fav)
	if err != nil {
		return err
	}
	s.favorites = favs
	return nil
}

func (s *MemoryStore) RemoveFavorite(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, removed := removeFavorite(s.favorites, id)
	if !removed {
		return fmt.Errorf("favorite %v: %w", id, ErrNotFound)
	}
	s.favorites = favs
	return nil
}

func (s *MemoryStore) History(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *MemoryStore) PushHistory(ctx context.Context, entry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = pushHistory(s.history, entry)
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context) (types.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return types.Snapshot{}, ErrNotFound
	}
	return *s.snapshot, nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snap
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)
