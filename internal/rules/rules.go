package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Pattern is a case-insensitive regular expression rule. When Unless is set,
// a name matching both Match and Unless is not considered a hit; this covers
// "prefix X but not one of these known exceptions" rules without lookahead.
type Pattern struct {
	Match  string `yaml:"match"`
	Unless string `yaml:"unless,omitempty"`

	match  *regexp.Regexp
	unless *regexp.Regexp
}

// Hit reports whether s matches the pattern.
func (p *Pattern) Hit(s string) bool {
	if p.match == nil || !p.match.MatchString(s) {
		return false
	}
	if p.unless != nil && p.unless.MatchString(s) {
		return false
	}
	return true
}

// CategoryBonus awards points for the first matching category substring.
// Order matters, so this is a list rather than a map.
type CategoryBonus struct {
	Category string `yaml:"category"`
	Points   int    `yaml:"points"`
}

// Ruleset is the data half of the channel classifiers: every keyword list the
// regional/offline/score heuristics consult. Keeping it as a document makes
// the classifiers pure functions over (channel, ruleset) and lets operators
// tune the lists without a rebuild.
type Ruleset struct {
	// Regional detection, checked in order of precedence.
	NationalWhitelist  []string  `yaml:"national_whitelist"`
	RegionalKeywords   []string  `yaml:"regional_keywords"`
	RegionalPlaces     []string  `yaml:"regional_places"`
	RegionalPatterns   []Pattern `yaml:"regional_patterns"`
	RegionalCategories []string  `yaml:"regional_categories"`

	// Offline detection.
	OfflineURLFragments []string `yaml:"offline_url_fragments"`
	LowQualityNames     []string `yaml:"low_quality_names"`
	SuspiciousWords     []string `yaml:"suspicious_words"`

	// Scoring.
	MajorBrands           []string        `yaml:"major_brands"`
	CategoryBonuses       []CategoryBonus `yaml:"category_bonuses"`
	UndesirableCategories []string        `yaml:"undesirable_categories"`
}

// Default returns the embedded ruleset.
func Default() *Ruleset {
	rs, err := parse(defaultYAML)
	if err != nil {
		// The embedded document is part of the build; failing to parse it is
		// a programming error, not an operator one.
		panic(fmt.Sprintf("rules: embedded default ruleset: %v", err))
	}
	return rs
}

// Load reads a ruleset override from a YAML file.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	rs, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return rs, nil
}

func parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// compile builds the regular expressions for the pattern rules. All patterns
// are case-insensitive. A bad pattern fails the load rather than panicking at
// classification time.
func (rs *Ruleset) compile() error {
	for i := range rs.RegionalPatterns {
		p := &rs.RegionalPatterns[i]
		re, err := regexp.Compile("(?i)" + p.Match)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p.Match, err)
		}
		p.match = re
		if p.Unless != "" {
			re, err := regexp.Compile("(?i)" + p.Unless)
			if err != nil {
				return fmt.Errorf("pattern %q unless %q: %w", p.Match, p.Unless, err)
			}
			p.unless = re
		}
	}
	return nil
}
