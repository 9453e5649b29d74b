// Package rank scores and classifies channels. Every function here is a
// lossy heuristic over curated keyword lists: false positives are expected
// and acceptable, because the output only orders and trims the channel list,
// it never gates playback.
package rank

import (
	"regexp"
	"strings"

	"github.com/tivyapp/tivy/internal/models"
	"github.com/tivyapp/tivy/internal/rules"
)

// Classifier evaluates channels against a ruleset. Favorites enter scoring as
// an explicit name-set snapshot taken once per pipeline run, so scoring a
// large channel set never touches storage. Given the same ruleset and
// snapshot, all methods are deterministic.
type Classifier struct {
	rules *rules.Ruleset
}

// New creates a Classifier over rs.
func New(rs *rules.Ruleset) *Classifier {
	return &Classifier{rules: rs}
}

// FavoriteNames builds the score-boost snapshot from the persisted set.
func FavoriteNames(favs []models.Favorite) map[string]bool {
	names := make(map[string]bool, len(favs))
	for _, f := range favs {
		names[f.Name] = true
	}
	return names
}

// IsRegional reports whether a channel looks regional/local rather than
// national. The national whitelist has highest precedence: a whitelisted name
// is never regional, no matter what its category says.
func (c *Classifier) IsRegional(ch models.Channel) bool {
	name := strings.ToLower(ch.Name)
	category := strings.ToLower(ch.Category)

	for _, allowed := range c.rules.NationalWhitelist {
		if strings.Contains(name, allowed) {
			return false
		}
	}
	for _, kw := range c.rules.RegionalKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	for _, place := range c.rules.RegionalPlaces {
		if strings.Contains(name, place) {
			return true
		}
	}
	for i := range c.rules.RegionalPatterns {
		if c.rules.RegionalPatterns[i].Hit(ch.Name) {
			return true
		}
	}
	for _, cat := range c.rules.RegionalCategories {
		if strings.Contains(category, cat) {
			return true
		}
	}
	return false
}

var reBareIPv4 = regexp.MustCompile(`^http://\d{1,3}(\.\d{1,3}){3}`)

// IsProbablyOffline reports whether a channel's URL or name suggests a dead
// or unstable stream. Non-HLS URLs count as higher risk here because the
// player primarily speaks HLS.
func (c *Classifier) IsProbablyOffline(ch models.Channel) bool {
	url := strings.ToLower(ch.URL)
	name := strings.ToLower(ch.Name)

	for _, frag := range c.rules.OfflineURLFragments {
		if strings.Contains(url, frag) {
			return true
		}
	}

	// Plain HTTP streams served off a literal IP rarely stay up.
	if reBareIPv4.MatchString(url) {
		return true
	}

	// Suspiciously short or malformed URLs.
	if len(url) < 25 || !strings.Contains(url, ".") {
		return true
	}

	if !strings.HasSuffix(url, ".m3u8") && !strings.Contains(url, ".m3u8?") {
		return true
	}

	for _, kw := range c.rules.LowQualityNames {
		if strings.Contains(name, kw) {
			return true
		}
	}

	if strings.HasPrefix(url, "http://") {
		for _, w := range c.rules.SuspiciousWords {
			if strings.Contains(name, w) {
				return true
			}
		}
	}
	return false
}

// Score computes the composite relevance score used by smart sort and the
// hard caps. Higher is better; regional and likely-offline channels sink.
// favs is the favorite-name snapshot and may be nil.
func (c *Classifier) Score(ch models.Channel, favs map[string]bool) int {
	name := strings.ToLower(ch.Name)
	category := strings.ToLower(ch.Category)

	var score int
	switch {
	case ch.Quality >= 2160:
		score += 100
	case ch.Quality >= 1080:
		score += 70
	case ch.Quality >= 720:
		score += 50
	case ch.Quality >= 576:
		score += 20
	default:
		score += 5
	}

	for _, brand := range c.rules.MajorBrands {
		if strings.Contains(name, brand) {
			score += 80
			break
		}
	}

	for _, b := range c.rules.CategoryBonuses {
		if strings.Contains(category, b.Category) {
			score += b.Points
			break
		}
	}

	if c.IsRegional(ch) {
		score -= 100
	}
	if c.IsProbablyOffline(ch) {
		score -= 60
	}

	for _, cat := range c.rules.UndesirableCategories {
		if strings.Contains(category, cat) {
			score -= 40
			break
		}
	}

	if favs[ch.Name] {
		score += 60
	}
	return score
}

// Stats summarizes a channel set for the filter panel.
type Stats struct {
	Total    int `json:"total"`
	Regional int `json:"regional"`
	Offline  int `json:"offline"`
	HD       int `json:"hd"`
	FullHD   int `json:"full_hd"`
	Major    int `json:"major"`
}

// Summarize counts classifier hits over channels. Major means a score above
// 50, i.e. channels that rank ahead of a plain SD entry. favs is the
// favorite-name snapshot and may be nil.
func (c *Classifier) Summarize(channels []models.Channel, favs map[string]bool) Stats {
	s := Stats{Total: len(channels)}
	for _, ch := range channels {
		if c.IsRegional(ch) {
			s.Regional++
		}
		if c.IsProbablyOffline(ch) {
			s.Offline++
		}
		if ch.Quality >= 720 {
			s.HD++
		}
		if ch.Quality >= 1080 {
			s.FullHD++
		}
		if c.Score(ch, favs) > 50 {
			s.Major++
		}
	}
	return s
}
