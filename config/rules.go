package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/padraicbc/megabike/scoring"
)

// ErrInvalidRules wraps every rules document schema violation.
var ErrInvalidRules = errors.New("invalid rules")

// Rules is the game rule set: which races count, their tiers, and the
// points column for each tier.
type Rules struct {
	// Races lists race keys (e.g. "milano-sanremo") in document order.
	Races       []string
	RaceTiers   map[string]int
	RankPoints  scoring.Table
	DefaultTier int
}

// TierFor returns the configured tier for a race key, or the default tier.
func (r *Rules) TierFor(raceKey string) int {
	if tier, ok := r.RaceTiers[raceKey]; ok {
		return tier
	}
	return r.DefaultTier
}

// TierForSlug returns the tier for a stored race slug such as
// "race/milano-sanremo/2025".
func (r *Rules) TierForSlug(slug string) int {
	key, _, _ := strings.Cut(strings.TrimPrefix(strings.Trim(slug, "/"), "race/"), "/")
	return r.TierFor(key)
}

type rulesDoc struct {
	Races       []raceRule   `mapstructure:"races"`
	RankPoints  []tierPoints `mapstructure:"rank_points"`
	DefaultTier *int         `mapstructure:"default_tier"`
}

type raceRule struct {
	Key  string `mapstructure:"key"`
	Tier int    `mapstructure:"tier"`
}

type tierPoints struct {
	Tier   int   `mapstructure:"tier"`
	Points []int `mapstructure:"points"`
}

// LoadRules reads a rules document. The format follows the file extension
// (yaml, json, toml); unknown keys are rejected.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	kind := filepath.Ext(path)
	if kind == "" {
		kind = ".yaml"
	}
	return ParseRules(bytes.NewReader(raw), kind[1:])
}

// ParseRules decodes and validates a rules document of the given format.
func ParseRules(r io.Reader, format string) (*Rules, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	var doc rulesDoc
	if err := v.UnmarshalExact(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	return doc.build()
}

func (d rulesDoc) build() (*Rules, error) {
	rules := &Rules{
		RaceTiers:   make(map[string]int, len(d.Races)),
		RankPoints:  make(scoring.Table, len(d.RankPoints)),
		DefaultTier: 1,
	}
	if d.DefaultTier != nil {
		rules.DefaultTier = *d.DefaultTier
	}

	if len(d.RankPoints) == 0 {
		return nil, fmt.Errorf("%w: rank_points is empty", ErrInvalidRules)
	}
	for _, tp := range d.RankPoints {
		if tp.Tier < 0 {
			return nil, fmt.Errorf("%w: negative tier %d", ErrInvalidRules, tp.Tier)
		}
		if _, dup := rules.RankPoints[tp.Tier]; dup {
			return nil, fmt.Errorf("%w: tier %d listed twice", ErrInvalidRules, tp.Tier)
		}
		if len(tp.Points) == 0 {
			return nil, fmt.Errorf("%w: tier %d has no points", ErrInvalidRules, tp.Tier)
		}
		for i, p := range tp.Points {
			if p < 0 {
				return nil, fmt.Errorf("%w: tier %d rank %d has negative points", ErrInvalidRules, tp.Tier, i+1)
			}
		}
		rules.RankPoints[tp.Tier] = append([]int(nil), tp.Points...)
	}
	if !rules.RankPoints.Has(rules.DefaultTier) {
		return nil, fmt.Errorf("%w: default tier %d has no points column", ErrInvalidRules, rules.DefaultTier)
	}

	for _, race := range d.Races {
		if race.Key == "" {
			return nil, fmt.Errorf("%w: race with empty key", ErrInvalidRules)
		}
		if _, dup := rules.RaceTiers[race.Key]; dup {
			return nil, fmt.Errorf("%w: race %q listed twice", ErrInvalidRules, race.Key)
		}
		if !rules.RankPoints.Has(race.Tier) {
			return nil, fmt.Errorf("%w: race %q uses tier %d with no points column", ErrInvalidRules, race.Key, race.Tier)
		}
		rules.Races = append(rules.Races, race.Key)
		rules.RaceTiers[race.Key] = race.Tier
	}
	return rules, nil
}
