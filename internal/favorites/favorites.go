// Package favorites manages the persisted favorites set and the theme
// preference on top of the key-value persistence collaborator.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/store"
)

// Logical keys in the KV store.
const (
	keyFavorites = "tivy_favorites"
	keyTheme     = "tivy_theme"
)

// Manager owns the favorites set (at most one entry per channel name) and the
// theme preference. There is no size limit and no conflict resolution beyond
// last toggle wins.
type Manager struct {
	kv store.KV

	// serializes toggle's read-modify-write cycle
	mu sync.Mutex
}

// New creates a Manager over kv.
func New(kv store.KV) *Manager {
	return &Manager{kv: kv}
}

// Favorites returns the persisted set in insertion order. Malformed stored
// JSON decodes to an empty set, never an error.
func (m *Manager) Favorites(ctx context.Context) ([]models.Favorite, error) {
	raw, ok, err := m.kv.Get(ctx, keyFavorites)
	if err != nil {
		return nil, fmt.Errorf("favorites get: %w", err)
	}
	if !ok {
		return []models.Favorite{}, nil
	}
	var favs []models.Favorite
	if err := json.Unmarshal([]byte(raw), &favs); err != nil || favs == nil {
		return []models.Favorite{}, nil
	}
	return favs, nil
}

// IsFavorite reports whether name is in the favorites set. Errors read as
// not-favorite. Bulk consumers should take one Favorites snapshot instead of
// calling this per channel.
func (m *Manager) IsFavorite(ctx context.Context, name string) bool {
	favs, err := m.Favorites(ctx)
	if err != nil {
		return false
	}
	for _, f := range favs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Toggle adds ch to the favorites set, or removes it when already present.
// Returns true when the channel was added. A favoriting round trip (toggle
// twice) restores the prior state.
func (m *Manager) Toggle(ctx context.Context, ch models.Channel) (added bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	favs, err := m.Favorites(ctx)
	if err != nil {
		return false, err
	}

	for i, f := range favs {
		if f.Name == ch.Name {
			favs = append(favs[:i], favs[i+1:]...)
			return false, m.save(ctx, favs)
		}
	}
	favs = append(favs, models.FavoriteOf(ch))
	return true, m.save(ctx, favs)
}

func (m *Manager) save(ctx context.Context, favs []models.Favorite) error {
	raw, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("favorites marshal: %w", err)
	}
	if err := m.kv.Set(ctx, keyFavorites, string(raw)); err != nil {
		return fmt.Errorf("favorites set: %w", err)
	}
	return nil
}

// Theme returns the stored theme preference, defaulting to dark.
func (m *Manager) Theme(ctx context.Context) string {
	raw, ok, err := m.kv.Get(ctx, keyTheme)
	if err != nil || !ok {
		return models.ThemeDark
	}
	if raw != models.ThemeDark && raw != models.ThemeLight {
		return models.ThemeDark
	}
	return raw
}

// SetTheme stores the theme preference.
func (m *Manager) SetTheme(ctx context.Context, theme string) error {
	if theme != models.ThemeDark && theme != models.ThemeLight {
		return fmt.Errorf("invalid theme %q", theme)
	}
	return m.kv.Set(ctx, keyTheme, theme)
}

// ToggleTheme flips between dark and light and returns the new value.
func (m *Manager) ToggleTheme(ctx context.Context) (string, error) {
	next := models.ThemeLight
	if m.Theme(ctx) == models.ThemeLight {
		next = models.ThemeDark
	}
	return next, m.kv.Set(ctx, keyTheme, next)
}
