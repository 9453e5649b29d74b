package playlist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/tivyapp/tivy/internal/models"
)

var (
	reTvgLogo = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup   = regexp.MustCompile(`group-title="([^"]*)"`)
	reTvgID   = regexp.MustCompile(`tvg-id="([^"]*)"`)

	reBrackets = regexp.MustCompile(`\[[^\]]*\]`)
	reResToken = regexp.MustCompile(`(?i)\s*\(?\d+p\)?`)
	re4KToken  = regexp.MustCompile(`(?i)\s*\(?4k\)?`)
	reHDToken  = regexp.MustCompile(`(?i)\s*\(?(fhd|hd|sd)\)?`)
)

// uaFragments mark names that are really captured HTTP header values from a
// broken upstream playlist.
var uaFragments = []string{"mozilla/", "chrome/", "safari/", "like gecko", "edg/"}

// Parse reads an extended-M3U playlist and returns deduplicated channels.
//
// Malformed input never produces an error: entries that cannot be parsed, have
// garbage names, or lack a URL are silently dropped. Within one parse, cleaned
// names are unique; when two entries share a name the higher-quality one wins
// and ties keep the first seen. Result order is the insertion order of each
// name's first kept occurrence.
func Parse(r io.Reader, region string) []models.Channel {
	scanner := bufio.NewScanner(r)
	// Some playlists carry very long EXTINF lines.
	const maxSize = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)

	var (
		channels   []models.Channel
		position   = make(map[string]int) // cleaned name -> index in channels
		pending    models.Channel
		hasPending bool
		seq        int // finalized entries, including dedup replacements
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(strings.ToUpper(line), "#EXTINF"):
			// A pending entry without a URL is dropped here (malformed).
			pending, hasPending = parseEXTINF(line, region)

		case line == "" || strings.HasPrefix(line, "#"):
			// Header, comment, or blank line.

		default:
			// URL line. Without a pending named entry it belongs to nothing.
			if !hasPending {
				continue
			}
			pending.URL = line
			// The ordinal counts every finalized entry, not unique names, so
			// ids stay distinct when a duplicate replaces an earlier slot.
			pending.ID = fmt.Sprintf("%s_%d_%d", region, seq, time.Now().UnixMilli())
			seq++

			if i, ok := position[pending.Name]; ok {
				// Keep the existing entry unless the new one is strictly
				// better; replacement keeps the original slot.
				if pending.Quality > channels[i].Quality {
					channels[i] = pending
				}
			} else {
				position[pending.Name] = len(channels)
				channels = append(channels, pending)
			}
			hasPending = false
		}
	}
	// Scanner errors (oversized lines, broken readers) are treated the same
	// as malformed input: whatever parsed so far is the result.
	return channels
}

// parseEXTINF extracts a channel from a metadata line. ok is false when the
// cleaned name is empty or looks like garbage.
func parseEXTINF(line, region string) (ch models.Channel, ok bool) {
	rawName := ""
	if i := strings.LastIndex(line, ","); i >= 0 {
		rawName = strings.TrimSpace(line[i+1:])
	}

	name := CleanName(rawName)
	if isGarbageName(name) {
		return models.Channel{}, false
	}

	category := matchFirst(reGroup, line)
	if category == "" {
		category = models.DefaultCategory
	}

	return models.Channel{
		Name:     name,
		Logo:     matchFirst(reTvgLogo, line),
		Category: category,
		Region:   region,
		Quality:  InferQuality(rawName),
		TvgID:    matchFirst(reTvgID, line),
	}, true
}

// InferQuality maps textual cues in a raw channel label onto the fixed
// resolution ladder. Unknown labels default to SD PAL height.
func InferQuality(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "4k") || strings.Contains(lower, "2160p"):
		return 2160
	case strings.Contains(lower, "1080p") || strings.Contains(lower, "fhd") || strings.Contains(lower, "full hd"):
		return 1080
	case strings.Contains(lower, "720p") || strings.Contains(lower, "hd"):
		return 720
	case strings.Contains(lower, "480p"):
		return 480
	case strings.Contains(lower, "360p"):
		return 360
	default:
		return models.DefaultQuality
	}
}

// CleanName strips bracketed annotations (e.g. "[Geo-blocked]"), resolution
// tokens, and HD/SD/FHD markers from a raw label.
func CleanName(name string) string {
	name = reBrackets.ReplaceAllString(name, "")
	name = reResToken.ReplaceAllString(name, "")
	name = re4KToken.ReplaceAllString(name, "")
	name = reHDToken.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// isGarbageName flags empty names and names that captured a user-agent or
// other HTTP header value from malformed source data.
func isGarbageName(name string) bool {
	if name == "" {
		return true
	}
	lower := strings.ToLower(name)
	for _, frag := range uaFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	if len(name) > 80 && (strings.Contains(name, "/") || strings.Contains(name, ";")) {
		return true
	}
	return false
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
