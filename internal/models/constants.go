package models

// RegionAll is the sentinel region for the unified global playlist.
const RegionAll = "ALL"

// Defaults applied when a playlist entry carries no usable metadata.
const (
	DefaultCategory = "General"
	DefaultQuality  = 576
)

// QualityLadder is the fixed set of vertical resolutions a channel can be
// classified into. Quality inference never produces values outside this set.
var QualityLadder = []int{360, 480, 576, 720, 1080, 2160}

// Sort modes accepted by the filter pipeline.
const (
	SortSmart     = "smart"
	SortName      = "name"
	SortQuality   = "quality"
	SortCategory  = "category"
	SortFavorites = "favorites"
)

// Quality filter selectors (besides an exact ladder number).
const (
	QualityAll = "all"
	QualityHD  = "hd"  // >= 720
	QualityFHD = "fhd" // >= 1080
)

// Theme preference values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)
