package match

import (
	"fmt"
	"strings"
)

// CompatMode selects how proximity slots interact with overlap-derived
// proximity sub-candidates.
type CompatMode int

const (
	// CompatComprehensive keeps tracked proximity candidates when a later
	// overlap emits its own upstream/downstream sub-candidates.
	CompatComprehensive CompatMode = iota
	// CompatLegacy clears the corresponding slot instead, matching the
	// output of the Python rgmatch tool.
	CompatLegacy
)

// ParseCompatMode parses a compat mode name.
func ParseCompatMode(s string) (CompatMode, error) {
	switch strings.ToLower(s) {
	case "comprehensive", "":
		return CompatComprehensive, nil
	case "legacy":
		return CompatLegacy, nil
	}
	return 0, fmt.Errorf("unknown compat mode %q (want legacy or comprehensive)", s)
}

// Config holds the matcher parameters. Values are validated once at startup
// and the config is immutable afterwards.
type Config struct {
	Distance int64   // association distance budget in bp
	TSS      float64 // TSS zone width in bp
	TTS      float64 // TTS zone width in bp
	Promoter float64 // promoter zone width in bp, adjacent to the TSS zone

	PercArea   float64 // area overlap threshold (0-100)
	PercRegion float64 // region overlap threshold (0-100)

	Level ReportLevel
	Rules []Area // priority order over areas

	GeneIDTag       string
	TranscriptIDTag string

	Compat CompatMode
}

// DefaultRules is the default area priority order.
var DefaultRules = []Area{
	AreaTSS,
	AreaFirstExon,
	AreaPromoter,
	AreaTTS,
	AreaIntron,
	AreaGeneBody,
	AreaUpstream,
	AreaDownstream,
}

// DefaultConfig returns a config with the standard defaults: 10 kb distance,
// 200 bp TSS, no TTS zone, 1300 bp promoter, 90% area / 50% region
// thresholds, exon-level reporting.
func DefaultConfig() *Config {
	rules := make([]Area, len(DefaultRules))
	copy(rules, DefaultRules)
	return &Config{
		Distance:        10000,
		TSS:             200,
		TTS:             0,
		Promoter:        1300,
		PercArea:        90,
		PercRegion:      50,
		Level:           LevelExon,
		Rules:           rules,
		GeneIDTag:       "gene_id",
		TranscriptIDTag: "transcript_id",
	}
}

// SetDistanceKB sets the distance budget from a kb value.
// Negative values are ignored.
func (c *Config) SetDistanceKB(kb int64) {
	if kb >= 0 {
		c.Distance = kb * 1000
	}
}

// ParseRules parses a comma-separated priority list. Every area tag must
// appear exactly once.
func (c *Config) ParseRules(s string) error {
	parts := strings.Split(s, ",")
	seen := make(map[Area]bool, len(parts))
	rules := make([]Area, 0, len(parts))
	for _, part := range parts {
		a, err := ParseArea(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		if seen[a] {
			return fmt.Errorf("duplicate area tag %q in rules", a)
		}
		seen[a] = true
		rules = append(rules, a)
	}
	if len(rules) != len(DefaultRules) {
		return fmt.Errorf("rules must name all %d area tags, got %d", len(DefaultRules), len(rules))
	}
	c.Rules = rules
	return nil
}

// Validate checks the config invariants that are fatal at startup.
func (c *Config) Validate() error {
	if c.Distance < 0 {
		return fmt.Errorf("the distance cannot be lower than 0 bps")
	}
	if c.TSS < 0 {
		return fmt.Errorf("the TSS distance cannot be lower than 0 bps")
	}
	if c.TTS < 0 {
		return fmt.Errorf("the TTS distance cannot be lower than 0 bps")
	}
	if c.Promoter < 0 {
		return fmt.Errorf("the promoter distance cannot be lower than 0 bps")
	}
	if c.PercArea < 0 || c.PercArea > 100 {
		return fmt.Errorf("the percentage of area should range between 0 and 100")
	}
	if c.PercRegion < 0 || c.PercRegion > 100 {
		return fmt.Errorf("the percentage of region should range between 0 and 100")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("no priority rules configured")
	}
	return nil
}

// MaxLookback returns the distance in bp the driver must look beyond a
// region's edges so that no zone within the config's reach is missed.
func (c *Config) MaxLookback() int64 {
	lookback := c.Distance
	for _, zone := range []float64{c.TSS, c.TTS, c.Promoter} {
		if int64(zone) > lookback {
			lookback = int64(zone)
		}
	}
	return lookback
}

// upstreamWidth returns the UPSTREAM zone width in bp.
func (c *Config) upstreamWidth() float64 {
	w := float64(c.Distance) - c.TSS - c.Promoter
	if w < 0 {
		return 0
	}
	return w
}

// downstreamWidth returns the DOWNSTREAM zone width in bp.
func (c *Config) downstreamWidth() float64 {
	w := float64(c.Distance) - c.TTS
	if w < 0 {
		return 0
	}
	return w
}
