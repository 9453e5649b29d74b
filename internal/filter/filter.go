// Package filter composes user criteria with the channel classifiers into a
// bounded, ordered working set.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/rank"
)

// Caps tuned for large playlists on low-end devices. Capping happens after a
// score sort so the survivors are the best-ranked channels, not an arbitrary
// prefix of the playlist.
const (
	// MaxChannelsAllRegion is the hard cap for the global ALL corpus.
	MaxChannelsAllRegion = 800
	// MaxPerRegion is the cap applied after filtering within one region.
	MaxPerRegion = 600
	// MinQualityAllRegion drops SD noise from the global corpus.
	MinQualityAllRegion = 576
)

// Criteria is the single source of truth for one filter interaction. Build it
// once per request and pass it by value; it is never mutated.
type Criteria struct {
	Search   string `json:"search,omitempty"`
	Region   string `json:"region"`
	Category string `json:"category,omitempty"`
	Quality  string `json:"quality,omitempty"` // "all", "hd", "fhd", or an exact ladder number
	Sort     string `json:"sort,omitempty"`

	// HideRegional is accepted but currently has no effect: regional
	// exclusion is unconditional in both region modes.
	HideRegional  bool `json:"hide_regional,omitempty"`
	HideOffline   bool `json:"hide_offline,omitempty"`
	FavoritesOnly bool `json:"favorites_only,omitempty"`
}

// qualityFloor resolves the quality selector to a minimum ladder value.
// Returns 0 when no floor applies.
func (c Criteria) qualityFloor() int {
	switch c.Quality {
	case "", models.QualityAll:
		return 0
	case models.QualityHD:
		return 720
	case models.QualityFHD:
		return 1080
	default:
		if n, err := strconv.Atoi(c.Quality); err == nil {
			return n
		}
		return 0
	}
}

// Apply runs the filter/sort/cap pipeline over channels. favorites is the
// persisted favorites set, used for the favorites-only filter and the
// favorites sort; the classifier consults its own lookup for score boosts.
// The input slice is never mutated.
func Apply(channels []models.Channel, crit Criteria, cls *rank.Classifier, favorites []models.Favorite) []models.Channel {
	list := make([]models.Channel, 0, len(channels))

	// Favorite names that apply in this region: entries recorded in the same
	// region, plus legacy entries with no recorded region.
	favNames := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		if f.Country == "" || f.Country == crit.Region {
			favNames[f.Name] = true
		}
	}
	// The score boost consults the whole favorites set, not the
	// region-scoped one: a favorite keeps its boost everywhere.
	scoreFavs := rank.FavoriteNames(favorites)

	// Score memo: scoring walks every keyword list, so cache per channel id.
	scores := make(map[string]int, len(channels))
	scoreOf := func(ch models.Channel) int {
		if s, ok := scores[ch.ID]; ok {
			return s
		}
		s := cls.Score(ch, scoreFavs)
		scores[ch.ID] = s
		return s
	}
	byScoreDesc := func(l []models.Channel) {
		sort.SliceStable(l, func(i, j int) bool { return scoreOf(l[i]) > scoreOf(l[j]) })
	}

	if crit.Region == models.RegionAll {
		// Global corpus: exclude regional and SD noise up front, score-sort,
		// and hard-cap. The user's sort choice is ignored at this scale.
		for _, ch := range channels {
			if cls.IsRegional(ch) {
				continue
			}
			if ch.Quality < MinQualityAllRegion {
				continue
			}
			if crit.HideOffline && cls.IsProbablyOffline(ch) {
				continue
			}
			list = append(list, ch)
		}
		byScoreDesc(list)
		if len(list) > MaxChannelsAllRegion {
			list = list[:MaxChannelsAllRegion]
		}
		return list
	}

	search := strings.ToLower(strings.TrimSpace(crit.Search))
	floor := crit.qualityFloor()

	for _, ch := range channels {
		if cls.IsRegional(ch) {
			continue
		}
		if crit.HideOffline && cls.IsProbablyOffline(ch) {
			continue
		}
		if crit.FavoritesOnly && !favNames[ch.Name] {
			continue
		}
		if crit.Category != "" && !strings.EqualFold(ch.Category, crit.Category) {
			continue
		}
		if floor > 0 && ch.Quality < floor {
			continue
		}
		if search != "" && !matchesSearch(ch, search) {
			continue
		}
		list = append(list, ch)
	}

	// Cap takes precedence over the chosen sort: past the cap, responsiveness
	// beats sort fidelity, and score order keeps the best channels.
	if len(list) > MaxPerRegion {
		byScoreDesc(list)
		return list[:MaxPerRegion]
	}

	switch crit.Sort {
	case models.SortName:
		sort.SliceStable(list, func(i, j int) bool { return lessName(list[i], list[j]) })
	case models.SortQuality:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Quality > list[j].Quality })
	case models.SortCategory:
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Category) < strings.ToLower(list[j].Category)
		})
	case models.SortFavorites:
		sort.SliceStable(list, func(i, j int) bool {
			fi, fj := favNames[list[i].Name], favNames[list[j].Name]
			if fi != fj {
				return fi
			}
			return lessName(list[i], list[j])
		})
	default: // models.SortSmart
		byScoreDesc(list)
	}
	return list
}

func lessName(a, b models.Channel) bool {
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// matchesSearch does a case-insensitive substring match against the channel's
// name, category, and source region.
func matchesSearch(ch models.Channel, search string) bool {
	return strings.Contains(strings.ToLower(ch.Name), search) ||
		strings.Contains(strings.ToLower(ch.Category), search) ||
		strings.Contains(strings.ToLower(ch.Region), search)
}
