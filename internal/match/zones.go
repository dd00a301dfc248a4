package match

import "github.com/rgmatch/rgmatch/internal/gtf"

// zoneHit is one labeled sub-interval produced by a zone splitter.
type zoneHit struct {
	area       Area
	pctgRegion float64
	pctgArea   float64
}

// boundaryExon is the terminal exon a zone splitter anchors on.
type boundaryExon struct {
	start, end int64
	strand     gtf.Strand
}

// pct returns 100*part/whole clamped to [0, 100]. A non-positive whole
// (zero-width zone) yields 0.
func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	p := 100 * part / whole
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// intersect returns the overlap length of [rs, re] and [zs, ze], 0 when
// they are disjoint.
func intersect(rs, re, zs, ze int64) int64 {
	s, e := max(rs, zs), min(re, ze)
	if s > e {
		return 0
	}
	return e - s + 1
}

// splitTSS intersects region [rs, re] with the three zones extending
// upstream from the transcription start: TSS, PROMOTER and UPSTREAM.
// Percentages are relative to the region and to each zone's width.
//
// On the negative strand the TSS sits at the exon end and upstream means
// increasing coordinates, so the region is mirrored around the exon end to
// make the zone walk strand-invariant.
func splitTSS(rs, re int64, ex boundaryExon, cfg *Config) []zoneHit {
	b := ex.start
	if ex.strand == gtf.Negative {
		rs, re = 2*ex.end-re, 2*ex.end-rs
		b = ex.end
	}
	length := float64(re - rs + 1)
	if length <= 0 {
		return nil
	}

	tss := int64(cfg.TSS)
	promoter := int64(cfg.Promoter)
	upstream := int64(cfg.upstreamWidth())

	var hits []zoneHit
	if ov := intersect(rs, re, b-tss, b-1); ov > 0 {
		hits = append(hits, zoneHit{AreaTSS, pct(float64(ov), length), pct(float64(ov), cfg.TSS)})
	}
	if ov := intersect(rs, re, b-tss-promoter, b-tss-1); ov > 0 {
		hits = append(hits, zoneHit{AreaPromoter, pct(float64(ov), length), pct(float64(ov), cfg.Promoter)})
	}
	if ov := intersect(rs, re, b-tss-promoter-upstream, b-tss-promoter-1); ov > 0 {
		hits = append(hits, zoneHit{AreaUpstream, pct(float64(ov), length), pct(float64(ov), cfg.upstreamWidth())})
	}
	return hits
}

// splitTTS intersects region [rs, re] with the TTS and DOWNSTREAM zones
// past the transcription termination site.
//
// Mirroring happens on the positive strand here (the opposite of splitTSS):
// the TTS sits at the exon end and downstream means increasing coordinates.
// A zero TTS width leaves the TTS zone empty, so only DOWNSTREAM is emitted.
func splitTTS(rs, re int64, ex boundaryExon, cfg *Config) []zoneHit {
	b := ex.start
	if ex.strand == gtf.Positive {
		rs, re = 2*ex.end-re, 2*ex.end-rs
		b = ex.end
	}
	length := float64(re - rs + 1)
	if length <= 0 {
		return nil
	}

	tts := int64(cfg.TTS)
	downstream := int64(cfg.downstreamWidth())

	var hits []zoneHit
	if ov := intersect(rs, re, b-tts, b-1); ov > 0 {
		hits = append(hits, zoneHit{AreaTTS, pct(float64(ov), length), pct(float64(ov), cfg.TTS)})
	}
	if ov := intersect(rs, re, b-tts-downstream, b-tts-1); ov > 0 {
		hits = append(hits, zoneHit{AreaDownstream, pct(float64(ov), length), pct(float64(ov), cfg.downstreamWidth())})
	}
	return hits
}
