// Package service owns the application state: the channel working set, the
// current playback position, and the load/filter orchestration around them.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tivyapp/tivy/internal/cache"
	"github.com/tivyapp/tivy/internal/favorites"
	"github.com/tivyapp/tivy/internal/filter"
	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/player"
	"github.com/tivyapp/tivy/internal/playlist"
	"github.com/tivyapp/tivy/internal/rank"
)

// Browser is the application-state struct: everything that was ambient
// module-level state in a single-page app lives here, with its collaborators
// injected explicitly.
type Browser struct {
	client *playlist.Client
	cls    *rank.Classifier
	favs   *favorites.Manager
	redis  *cache.Redis // nil disables playlist caching
	player *player.Controller

	mu           sync.RWMutex
	region       string
	all          []models.Channel
	filtered     []models.Channel
	current      *models.Channel
	currentIndex int

	// generation makes the newest-initiated load win: an older load that
	// finishes after a newer one started commits nothing.
	generation atomic.Int64

	ready atomic.Bool
}

// New wires a Browser. redis may be nil.
func New(client *playlist.Client, cls *rank.Classifier, favs *favorites.Manager, redis *cache.Redis, ctrl *player.Controller) *Browser {
	return &Browser{client: client, cls: cls, favs: favs, redis: redis, player: ctrl}
}

// StartFailSafe arms the fixed fail-safe timer: after d the service reports
// ready no matter what the initial load is doing, so the UI can never hang on
// a fetch that neither resolves nor rejects.
func (b *Browser) StartFailSafe(d time.Duration) {
	time.AfterFunc(d, func() {
		if !b.ready.Load() {
			log.Printf("fail-safe timer fired after %s; reporting ready", d)
			b.ready.Store(true)
		}
	})
}

// Ready reports whether the first load has settled or the fail-safe fired.
func (b *Browser) Ready() bool { return b.ready.Load() }

// LoadChannels fetches and parses the playlist for region and replaces the
// whole working set. On failure the prior set stays in place. A load that was
// superseded by a newer one commits nothing.
func (b *Browser) LoadChannels(ctx context.Context, region string) (int, error) {
	gen := b.generation.Add(1)
	defer b.ready.Store(true) // settled, success or not

	body, err := b.fetchPlaylist(ctx, region)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	channels := playlist.Parse(bytes.NewReader(body), region)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation.Load() != gen {
		return len(channels), nil // superseded by a newer load
	}
	b.region = region
	b.all = channels
	b.filtered = nil
	return len(channels), nil
}

// ErrRefreshBusy is reported when another instance already holds the refresh
// lock for the requested region.
var ErrRefreshBusy = errors.New("a refresh for this region is already running")

// Refresh forces a reload of region from upstream. The cached playlist body
// is invalidated first so the fetch cannot be served from Redis, and cached
// probe results are cleared once the new set commits, since they describe
// streams from the superseded playlist.
func (b *Browser) Refresh(ctx context.Context, region string) (int, error) {
	if b.redis != nil {
		if cache.IsLocked(ctx, b.redis, cache.RefreshLockKey(region)) {
			return 0, ErrRefreshBusy
		}
		key := cache.PlaylistKey(region)
		if err := cache.Del(ctx, b.redis, key); err != nil {
			log.Printf("cache: invalidate %s: %v", key, err)
		}
	}

	n, err := b.LoadChannels(ctx, region)
	if err != nil {
		return 0, err
	}

	if b.redis != nil {
		if err := cache.DelPattern(ctx, b.redis, cache.HealthPattern); err != nil {
			log.Printf("cache: clear probe results: %v", err)
		}
	}
	return n, nil
}

// fetchPlaylist returns the raw playlist body, from Redis when a fresh copy
// is cached, else from upstream. The refresh lock keeps multiple instances
// from hitting upstream for the same region at once; failing to take it only
// skips the cache write.
func (b *Browser) fetchPlaylist(ctx context.Context, region string) ([]byte, error) {
	if b.redis == nil {
		return b.client.Fetch(ctx, region)
	}

	key := cache.PlaylistKey(region)
	if s, err := cache.Get[string](ctx, b.redis, key); err == nil {
		return []byte(s), nil
	} else if !cache.IsMiss(err) {
		log.Printf("cache: get %s: %v", key, err)
	}

	unlock, err := cache.TryLock(ctx, b.redis, cache.RefreshLockKey(region), time.Minute)
	if err != nil && err != cache.ErrLocked {
		log.Printf("cache: lock: %v", err)
	}

	body, err := b.client.Fetch(ctx, region)
	if err != nil {
		if unlock != nil {
			unlock()
		}
		return nil, err
	}
	if unlock != nil {
		if err := cache.Set(ctx, b.redis, key, string(body), cache.TTLPlaylist); err != nil {
			log.Printf("cache: set %s: %v", key, err)
		}
		unlock()
	}
	return body, nil
}

// Channels filters the working set by crit and records the result as the
// navigable filtered list. An empty criteria region defaults to the loaded
// region.
func (b *Browser) Channels(ctx context.Context, crit filter.Criteria) ([]models.Channel, error) {
	favs, err := b.favs.Favorites(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if crit.Region == "" {
		crit.Region = b.region
	}
	b.filtered = filter.Apply(b.all, crit, b.cls, favs)
	return b.filtered, nil
}

// Stats summarizes the full (unfiltered) working set. The favorites snapshot
// is read once; a storage failure only costs the favorite boosts.
func (b *Browser) Stats(ctx context.Context) rank.Stats {
	favs, err := b.favs.Favorites(ctx)
	if err != nil {
		log.Printf("stats: favorites: %v", err)
	}
	names := rank.FavoriteNames(favs)

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cls.Summarize(b.all, names)
}

// Region returns the currently loaded region.
func (b *Browser) Region() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.region
}

// All returns the full working set.
func (b *Browser) All() []models.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Channel, len(b.all))
	copy(out, b.all)
	return out
}

// Filtered returns the last filtered working set.
func (b *Browser) Filtered() []models.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Channel, len(b.filtered))
	copy(out, b.filtered)
	return out
}

// PlayByName plays the named channel from the working set. Favorites saved
// before URLs were recorded carry no URL, so a missing channel resolves
// against the full set by name before giving up.
func (b *Browser) PlayByName(ctx context.Context, name string) (*player.Session, error) {
	b.mu.RLock()
	var (
		found models.Channel
		index = -1
	)
	for i, ch := range b.filtered {
		if ch.Name == name {
			found, index = ch, i
			break
		}
	}
	if index < 0 {
		for _, ch := range b.all {
			if ch.Name == name {
				found = ch
				break
			}
		}
	}
	b.mu.RUnlock()

	if found.Name == "" {
		return nil, fmt.Errorf("channel %q not in the current playlist", name)
	}
	return b.play(ctx, found, index)
}

// PlayIndex plays the filtered working set entry at index.
func (b *Browser) PlayIndex(ctx context.Context, index int) (*player.Session, error) {
	b.mu.RLock()
	if index < 0 || index >= len(b.filtered) {
		b.mu.RUnlock()
		return nil, fmt.Errorf("index %d out of range", index)
	}
	ch := b.filtered[index]
	b.mu.RUnlock()
	return b.play(ctx, ch, index)
}

// Next advances playback to the next filtered channel.
func (b *Browser) Next(ctx context.Context) (*player.Session, error) {
	b.mu.RLock()
	index := b.currentIndex + 1
	size := len(b.filtered)
	b.mu.RUnlock()
	if index >= size {
		return nil, fmt.Errorf("already at last channel")
	}
	return b.PlayIndex(ctx, index)
}

// Prev moves playback to the previous filtered channel.
func (b *Browser) Prev(ctx context.Context) (*player.Session, error) {
	b.mu.RLock()
	index := b.currentIndex - 1
	b.mu.RUnlock()
	if index < 0 {
		return nil, fmt.Errorf("already at first channel")
	}
	return b.PlayIndex(ctx, index)
}

func (b *Browser) play(ctx context.Context, ch models.Channel, index int) (*player.Session, error) {
	s, err := b.player.Play(ctx, ch)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.current = &ch
	if index >= 0 {
		b.currentIndex = index
	}
	b.mu.Unlock()
	return s, nil
}

// Stop ends playback.
func (b *Browser) Stop() {
	b.player.Stop()
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
}

// Playback reports the controller status.
func (b *Browser) Playback() player.Status {
	return b.player.Status()
}
