// Package prefs persists the user's last folder path and favorite set.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sw33tLie/galshelf/pkg/logging"
	"github.com/sw33tLie/galshelf/pkg/query"
	"github.com/sw33tLie/galshelf/pkg/storage"
)

// Storage keys. They match what earlier releases wrote, so existing
// preference files keep working.
const (
	KeyFolderPath = "mdFolderPath"
	KeyFavorites  = "galgameFavorites"
)

// Store is the in-memory view of the persisted preferences. Every mutation
// is written through before the call returns.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	log       logging.Logger
	favorites query.Set
	path      string
}

// Open loads preferences from kv. Unreadable or corrupt favorites degrade
// to an empty set with a warning; only storage errors fail Open.
func Open(ctx context.Context, kv storage.KV, log logging.Logger) (*Store, error) {
	s := &Store{kv: kv, log: logging.OrNop(log), favorites: query.Set{}}

	path, _, err := kv.Get(ctx, KeyFolderPath)
	if err != nil {
		return nil, fmt.Errorf("prefs: reading folder path: %w", err)
	}
	s.path = path

	raw, ok, err := kv.Get(ctx, KeyFavorites)
	if err != nil {
		return nil, fmt.Errorf("prefs: reading favorites: %w", err)
	}
	if ok && raw != "" {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			s.log.Warnf("Ignoring corrupt favorites in %s: %v", kv.Location(), err)
		} else {
			s.favorites = query.NewSet(ids...)
		}
	}
	return s, nil
}

// Favorites returns a copy of the favorite set.
func (s *Store) Favorites() query.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(query.Set, len(s.favorites))
	for id := range s.favorites {
		out[id] = struct{}{}
	}
	return out
}

// FavoriteIDs returns the favorite IDs sorted.
func (s *Store) FavoriteIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.favorites)
}

func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites.Has(id)
}

// ToggleFavorite flips membership of id and persists the set. It returns the
// new membership. On a write failure the set is left unchanged.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, was := s.favorites[id]
	if was {
		delete(s.favorites, id)
	} else {
		s.favorites[id] = struct{}{}
	}

	if err := s.writeFavorites(ctx); err != nil {
		if was {
			s.favorites[id] = struct{}{}
		} else {
			delete(s.favorites, id)
		}
		return was, err
	}
	s.log.Debugf("Favorite %s set to %v", id, !was)
	return !was, nil
}

func (s *Store) writeFavorites(ctx context.Context) error {
	buf, err := json.Marshal(sortedIDs(s.favorites))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyFavorites, string(buf)); err != nil {
		return fmt.Errorf("prefs: saving favorites: %w", err)
	}
	return nil
}

// SavedPath returns the last folder path, or "" when none was saved.
func (s *Store) SavedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SavePath persists path as the folder to restore on the next start.
func (s *Store) SavePath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, KeyFolderPath, path); err != nil {
		return fmt.Errorf("prefs: saving folder path: %w", err)
	}
	s.path = path
	return nil
}

// Location describes the backing store.
func (s *Store) Location() string { return s.kv.Location() }

func sortedIDs(set query.Set) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
