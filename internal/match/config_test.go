package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, int64(10000), cfg.Distance)
	assert.Equal(t, 200.0, cfg.TSS)
	assert.Equal(t, 0.0, cfg.TTS)
	assert.Equal(t, 1300.0, cfg.Promoter)
	assert.Equal(t, 90.0, cfg.PercArea)
	assert.Equal(t, 50.0, cfg.PercRegion)
	assert.Equal(t, LevelExon, cfg.Level)
	assert.Len(t, cfg.Rules, 8)
	assert.Equal(t, "gene_id", cfg.GeneIDTag)
	assert.Equal(t, "transcript_id", cfg.TranscriptIDTag)
	assert.Equal(t, CompatComprehensive, cfg.Compat)
	require.NoError(t, cfg.Validate())
}

func TestSetDistanceKB(t *testing.T) {
	cfg := DefaultConfig()

	cfg.SetDistanceKB(20)
	assert.Equal(t, int64(20000), cfg.Distance)

	cfg.SetDistanceKB(-1)
	assert.Equal(t, int64(20000), cfg.Distance) // unchanged

	cfg.SetDistanceKB(0)
	assert.Equal(t, int64(0), cfg.Distance)
}

func TestParseRules(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ParseRules("DOWNSTREAM,UPSTREAM,GENE_BODY,INTRON,TTS,PROMOTER,1st_EXON,TSS")
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 8)
	assert.Equal(t, AreaDownstream, cfg.Rules[0])
	assert.Equal(t, AreaUpstream, cfg.Rules[1])
	assert.Equal(t, AreaGeneBody, cfg.Rules[2])
	assert.Equal(t, AreaTSS, cfg.Rules[7])
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules string
	}{
		{"missing tags", "TSS,1st_EXON,PROMOTER"},
		{"duplicate tags", "TSS,TSS,TSS,TSS,TSS,TSS,TSS,TSS"},
		{"lowercase", "tss,1st_exon,promoter,tts,intron,gene_body,upstream,downstream"},
		{"unknown tag", "TSS,UNKNOWN1,UNKNOWN2,UNKNOWN3"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			assert.Error(t, cfg.ParseRules(tt.rules))
		})
	}
}

func TestMaxLookback(t *testing.T) {
	cfg := DefaultConfig()
	// distance 10000 dominates tss/tts/promoter.
	assert.Equal(t, int64(10000), cfg.MaxLookback())

	cfg.TSS = 15000
	assert.Equal(t, int64(15000), cfg.MaxLookback())

	cfg = DefaultConfig()
	cfg.Promoter = 20000
	assert.Equal(t, int64(20000), cfg.MaxLookback())

	cfg = DefaultConfig()
	cfg.TTS = 12000
	assert.Equal(t, int64(12000), cfg.MaxLookback())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tss", func(c *Config) { c.TSS = -1 }},
		{"negative tts", func(c *Config) { c.TTS = -1 }},
		{"negative promoter", func(c *Config) { c.Promoter = -1 }},
		{"perc_area over 100", func(c *Config) { c.PercArea = 101 }},
		{"perc_region negative", func(c *Config) { c.PercRegion = -5 }},
		{"no rules", func(c *Config) { c.Rules = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseReportLevel(t *testing.T) {
	for _, s := range []string{"exon", "EXON", "Exon"} {
		level, err := ParseReportLevel(s)
		require.NoError(t, err)
		assert.Equal(t, LevelExon, level)
	}

	level, err := ParseReportLevel("transcript")
	require.NoError(t, err)
	assert.Equal(t, LevelTranscript, level)

	level, err = ParseReportLevel("gene")
	require.NoError(t, err)
	assert.Equal(t, LevelGene, level)

	_, err = ParseReportLevel("region")
	assert.Error(t, err)
}

func TestParseCompatMode(t *testing.T) {
	mode, err := ParseCompatMode("legacy")
	require.NoError(t, err)
	assert.Equal(t, CompatLegacy, mode)

	mode, err = ParseCompatMode("comprehensive")
	require.NoError(t, err)
	assert.Equal(t, CompatComprehensive, mode)

	_, err = ParseCompatMode("strict")
	assert.Error(t, err)
}

func TestParseAreaRoundTrip(t *testing.T) {
	for _, a := range DefaultRules {
		parsed, err := ParseArea(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	// EXON has an output label but is not a rule tag.
	assert.Equal(t, "EXON", AreaExon.String())
	_, err := ParseArea("EXON")
	assert.Error(t, err)
}
