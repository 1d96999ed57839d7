package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"skycast/internal/types"
)

// Fixed document keys. Each record is read and written atomically as a
// whole JSON document.
const (
	keyFavorites = "skycast:favorite_cities"
	keyHistory   = "skycast:search_history"
	keySnapshot  = "skycast:current_weather"
)

// maxHistory caps the search history at the most recent entries.
const maxHistory = 5

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateFavorite is returned when adding a city whose (lat, lon)
	// pair is already in the favorites list.
	ErrDuplicateFavorite = errors.New("city already in favorites")
)

// Store persists the dashboard's three client-side records: favorite
// cities, search history, and the last-viewed weather snapshot.
type Store interface {
	Favorites(ctx context.Context) ([]types.FavoriteCity, error)
	AddFavorite(ctx context.Context, fav types.FavoriteCity) error
	RemoveFavorite(ctx context.Context, id string) error

	History(ctx context.Context) ([]string, error)
	PushHistory(ctx context.Context, entry string) error

	Snapshot(ctx context.Context) (types.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap types.Snapshot) error
}

// NewFavoriteID builds a favorite id from the creation time plus a random
// suffix. Ids are display handles only; duplicate detection keys on the
// (lat, lon) pair.
func NewFavoriteID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + strconv.FormatInt(int64(rand.Int31()), 36)
}

// appendFavorite enforces the no-duplicate-coordinates invariant. The input
// slice is returned unchanged alongside the error on a duplicate.
func appendFavorite(favs []types.FavoriteCity, fav types.FavoriteCity) ([]types.FavoriteCity, error) {
	for _, f := range favs {
		if f.Lat == fav.Lat && f.Lon == fav.Lon {
			return favs, fmt.Errorf("%w: %v", ErrDuplicateFavorite, fav.Name)
		}
	}
	return append(favs, fav), nil
}

// pushHistory puts entry first, drops any exact duplicate, and trims to the
// five most recent.
func pushHistory(history []string, entry string) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, entry)
	for _, h := range history {
		if h != entry {
			out = append(out, h)
		}
	}
	if len(out) > maxHistory {
		out = out[:maxHistory]
	}
	return out
}

// removeFavorite drops the favorite with the given id, reporting whether it
// was present.
func removeFavorite(favs []types.FavoriteCity, id string) ([]types.FavoriteCity, bool) {
	for i, f := range favs {
		if f.Id == id {
			return append(favs[:i:i], favs[i+1:]...), true
		}
	}
	return favs, false
}
