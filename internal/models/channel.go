package models

// Channel is one playable entry parsed from an M3U playlist. Channels are
// rebuilt from scratch on every playlist load; nothing about them persists.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Logo     string `json:"logo,omitempty"`
	Category string `json:"category"`
	Region   string `json:"region"`
	Quality  int    `json:"quality"`
	TvgID    string `json:"tvg_id,omitempty"`
}

// Favorite is the reduced projection of a Channel that survives reloads.
// Identity is the name: channel ids are regenerated on every parse, so they
// cannot be used to match a favorite back to a live channel.
type Favorite struct {
	Name     string `json:"name"`
	Logo     string `json:"logo,omitempty"`
	Category string `json:"category"`
	Quality  int    `json:"quality"`
	Country  string `json:"country,omitempty"`
}

// FavoriteOf builds the persisted projection of ch.
func FavoriteOf(ch Channel) Favorite {
	f := Favorite{
		Name:     ch.Name,
		Logo:     ch.Logo,
		Category: ch.Category,
		Quality:  ch.Quality,
		Country:  ch.Region,
	}
	if f.Category == "" {
		f.Category = DefaultCategory
	}
	if f.Quality == 0 {
		f.Quality = DefaultQuality
	}
	return f
}
