package match

import (
	"strconv"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/gtf"
)

// Candidate is one potential association between a region and a gene
// feature, before and after rule collapsing.
type Candidate struct {
	Start        int64 // feature start (exon, intron span or zone anchor)
	End          int64
	Strand       gtf.Strand
	ExonNumber   string // "" for candidates with no single exon (GENE_BODY)
	Area         Area
	TranscriptID string
	GeneID       string
	Distance     int64 // 0 for overlaps, midpoint distance for proximity
	PctgRegion   float64
	PctgArea     float64
	TSSDistance  int64 // signed midpoint distance to the transcript TSS
}

// proximitySlot tracks the closest strictly-proximity candidate set on one
// side of the region. A slot is replaced only by a strictly closer gene.
type proximitySlot struct {
	set      bool
	distance int64
	cands    []Candidate
}

func (s *proximitySlot) offer(distance int64, cands []Candidate) {
	if len(cands) == 0 {
		return
	}
	if !s.set || distance < s.distance {
		s.set = true
		s.distance = distance
		s.cands = cands
	}
}

func (s *proximitySlot) clear() {
	s.set = false
	s.cands = nil
}

// regionState is the per-region working buffer. Each worker owns its own.
type regionState struct {
	cands []Candidate
	up    proximitySlot
	down  proximitySlot
}

// MatchRegion runs the matcher for one region against a chromosome's gene
// index and returns the collapsed output candidates.
func MatchRegion(r *bed.Region, ci *gtf.ChromIndex, cfg *Config) []Candidate {
	st := &regionState{}
	lookback := cfg.MaxLookback()

	from := ci.SearchStart(r.Start - lookback - ci.MaxGeneLength)
	for _, g := range ci.Genes[from:] {
		if g.Start > r.End+lookback {
			break
		}
		for _, t := range g.Transcripts {
			matchTranscript(r, g, t, cfg, st)
		}
	}

	for _, slot := range []*proximitySlot{&st.up, &st.down} {
		if slot.set && slot.distance <= cfg.Distance {
			st.cands = append(st.cands, slot.cands...)
		}
	}

	return Collapse(st.cands, cfg)
}

// matchTranscript classifies every exon of the transcript against the region
// and feeds candidates into the region state.
//
// Exons are walked in ascending genomic order. Each exon falls into one of
// three buckets: entirely before the region, entirely after it, or
// overlapping. Terminal exons route the region's overhang through the
// TSS/TTS zone splitters; interior gaps accumulate intron candidates.
func matchTranscript(r *bed.Region, g *gtf.Gene, t *gtf.Transcript, cfg *Config, st *regionState) {
	n := len(t.Exons)
	if n == 0 {
		return
	}

	rs, re := r.Start, r.End
	rlen := float64(r.Length())
	mid := r.Midpoint()
	tssDist := tssDistance(t, g.Strand, mid)

	var coveredLen int64
	exonTouched, intronTouched := false, false

exons:
	for i := range t.Exons {
		ex := &t.Exons[i]

		if i > 0 {
			// Intronic gap between the previous exon and this one.
			prev := &t.Exons[i-1]
			is, ie := prev.End+1, ex.Start-1
			if os, oe := max(rs, is), min(re, ie); is <= ie && os <= oe {
				ov := oe - os + 1
				// Introns are numbered after the biologically preceding exon.
				intronNum := prev.Number
				if g.Strand == gtf.Negative {
					intronNum = ex.Number
				}
				st.cands = append(st.cands, Candidate{
					Start:        is,
					End:          ie,
					Strand:       g.Strand,
					ExonNumber:   strconv.Itoa(intronNum),
					Area:         AreaIntron,
					TranscriptID: t.ID,
					GeneID:       g.ID,
					PctgRegion:   pct(float64(ov), rlen),
					PctgArea:     pct(float64(ov), float64(ie-is+1)),
					TSSDistance:  tssDist,
				})
				intronTouched = true
				coveredLen += ov
			}
		}

		switch {
		case ex.End < rs:
			// Exon entirely before the region. Only the genomically last
			// exon anchors a proximity candidate: its trailing boundary is
			// the TTS on the forward strand and the TSS on the reverse.
			if i == n-1 {
				dist := abs64(mid - ex.End)
				bx := boundaryExon{ex.Start, ex.End, g.Strand}
				if g.Strand == gtf.Positive {
					st.down.offer(dist, zoneCandidates(splitTTS(rs, re, bx, cfg), ex, g, t, dist, tssDist))
				} else {
					st.up.offer(dist, zoneCandidates(splitTSS(rs, re, bx, cfg), ex, g, t, dist, tssDist))
				}
			}

		case re < ex.Start:
			// Exon entirely after the region; mirrored proximity anchored on
			// the genomically first exon.
			if i == 0 {
				dist := abs64(ex.Start - mid)
				bx := boundaryExon{ex.Start, ex.End, g.Strand}
				if g.Strand == gtf.Positive {
					st.up.offer(dist, zoneCandidates(splitTSS(rs, re, bx, cfg), ex, g, t, dist, tssDist))
				} else {
					st.down.offer(dist, zoneCandidates(splitTTS(rs, re, bx, cfg), ex, g, t, dist, tssDist))
				}
			}
			// Every later exon starts even further right.
			break exons

		default:
			// Overlap: full or partial intersection of region and exon.
			ovS, ovE := max(rs, ex.Start), min(re, ex.End)
			ov := ovE - ovS + 1
			area := AreaExon
			if ex.Number == 1 {
				area = AreaFirstExon
			}
			st.cands = append(st.cands, Candidate{
				Start:        ex.Start,
				End:          ex.End,
				Strand:       g.Strand,
				ExonNumber:   strconv.Itoa(ex.Number),
				Area:         area,
				TranscriptID: t.ID,
				GeneID:       g.ID,
				PctgRegion:   pct(float64(ov), rlen),
				PctgArea:     pct(float64(ov), float64(ex.Length())),
				TSSDistance:  tssDist,
			})
			exonTouched = true
			coveredLen += ov

			// Overhang before the genomically first exon. The splitters get
			// the whole region: their zones all end before the exon, so the
			// in-exon part contributes nothing and percentages stay relative
			// to the full region.
			if rs < ex.Start && i == 0 {
				bx := boundaryExon{ex.Start, ex.End, g.Strand}
				var hits []zoneHit
				var side *proximitySlot
				if g.Strand == gtf.Positive {
					hits = splitTSS(rs, re, bx, cfg)
					side = &st.up
				} else {
					hits = splitTTS(rs, re, bx, cfg)
					side = &st.down
				}
				st.cands = append(st.cands, zoneCandidates(hits, ex, g, t, 0, tssDist)...)
				if cfg.Compat == CompatLegacy {
					side.clear()
				}
			}
			// Overhang past the genomically last exon.
			if re > ex.End && i == n-1 {
				bx := boundaryExon{ex.Start, ex.End, g.Strand}
				var hits []zoneHit
				var side *proximitySlot
				if g.Strand == gtf.Positive {
					hits = splitTTS(rs, re, bx, cfg)
					side = &st.down
				} else {
					hits = splitTSS(rs, re, bx, cfg)
					side = &st.up
				}
				st.cands = append(st.cands, zoneCandidates(hits, ex, g, t, 0, tssDist)...)
				if cfg.Compat == CompatLegacy {
					side.clear()
				}
			}
		}
	}

	if exonTouched && intronTouched {
		covered := float64(coveredLen)
		st.cands = append(st.cands, Candidate{
			Start:        t.Start,
			End:          t.End,
			Strand:       g.Strand,
			Area:         AreaGeneBody,
			TranscriptID: t.ID,
			GeneID:       g.ID,
			PctgRegion:   pct(covered, rlen),
			PctgArea:     pct(covered, float64(t.Length())),
			TSSDistance:  tssDist,
		})
	}
}

// zoneCandidates turns zone splitter hits into candidates anchored on the
// given exon.
func zoneCandidates(hits []zoneHit, ex *gtf.Exon, g *gtf.Gene, t *gtf.Transcript, distance, tssDist int64) []Candidate {
	cands := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		cands = append(cands, Candidate{
			Start:        ex.Start,
			End:          ex.End,
			Strand:       g.Strand,
			ExonNumber:   strconv.Itoa(ex.Number),
			Area:         h.area,
			TranscriptID: t.ID,
			GeneID:       g.ID,
			Distance:     distance,
			PctgRegion:   h.pctgRegion,
			PctgArea:     h.pctgArea,
			TSSDistance:  tssDist,
		})
	}
	return cands
}

// tssDistance returns the signed distance from the region midpoint to the
// transcript TSS. Negative values are upstream of the TSS on both strands.
func tssDistance(t *gtf.Transcript, strand gtf.Strand, mid int64) int64 {
	if strand == gtf.Negative {
		return t.End - mid
	}
	return mid - t.Start
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
