package match

import (
	"sort"
	"strconv"
	"strings"
)

// Collapse reduces a region's raw candidates to output rows at the
// configured reporting level. Exon level reports every candidate as
// generated; transcript level keeps the best candidate per
// (gene, transcript); gene level additionally merges transcripts per gene.
func Collapse(cands []Candidate, cfg *Config) []Candidate {
	switch cfg.Level {
	case LevelTranscript:
		return applyRules(cands, groupCandidates(cands, transcriptKey), cfg)
	case LevelGene:
		perTranscript := applyRules(cands, groupCandidates(cands, transcriptKey), cfg)
		return selectTranscript(perTranscript, groupCandidates(perTranscript, geneKey), cfg.Rules)
	default:
		return cands
	}
}

func transcriptKey(c *Candidate) string {
	return c.GeneID + "\x00" + c.TranscriptID
}

func geneKey(c *Candidate) string {
	return c.GeneID
}

// candidateGroups indexes candidates by key, with keys in sorted order so
// collapsing is deterministic.
type candidateGroups struct {
	keys  []string
	byKey map[string][]int
}

func groupCandidates(cands []Candidate, key func(*Candidate) string) *candidateGroups {
	gs := &candidateGroups{byKey: make(map[string][]int)}
	for i := range cands {
		k := key(&cands[i])
		if _, ok := gs.byKey[k]; !ok {
			gs.keys = append(gs.keys, k)
		}
		gs.byKey[k] = append(gs.byKey[k], i)
	}
	sort.Strings(gs.keys)
	return gs
}

// applyRules collapses each group to its single best candidate.
//
// Single-candidate groups pass through untouched. Larger groups are first
// filtered by the configured thresholds: exon overlaps below the area
// threshold and proximity candidates below the region threshold are
// dropped (introns and gene bodies are always retained). A filter that
// empties the group falls back to the whole group. The winner is the first
// area in the rules order with a match, breaking ties by region percentage,
// area percentage, distance and candidate key. Groups whose areas all miss
// the rules list produce no output.
func applyRules(cands []Candidate, gs *candidateGroups, cfg *Config) []Candidate {
	var out []Candidate
	for _, key := range gs.keys {
		idxs := gs.byKey[key]
		if len(idxs) == 1 {
			out = append(out, cands[idxs[0]])
			continue
		}

		kept := make([]int, 0, len(idxs))
		for _, i := range idxs {
			c := &cands[i]
			if c.Area.exonLike() && c.PctgArea < cfg.PercArea {
				continue
			}
			if c.Area.proximity() && c.PctgRegion < cfg.PercRegion {
				continue
			}
			kept = append(kept, i)
		}
		if len(kept) == 0 {
			kept = idxs
		}

		matched := matchRule(cands, kept, cfg.Rules)
		if len(matched) == 0 {
			continue
		}

		winner := cands[bestCandidate(cands, matched)]
		winner.ExonNumber = mergeExonNumbers(cands, matched)
		out = append(out, winner)
	}
	return out
}

// selectTranscript merges transcript-level winners into one row per gene:
// the representative is the highest-priority candidate, transcript IDs and
// exon numbers are unioned and percentages take their maxima. A group whose
// areas all miss the rules list falls back to its first candidate's area.
func selectTranscript(cands []Candidate, gs *candidateGroups, rules []Area) []Candidate {
	var out []Candidate
	for _, key := range gs.keys {
		idxs := gs.byKey[key]

		matched := matchRule(cands, idxs, rules)
		if len(matched) == 0 {
			area := cands[idxs[0]].Area.ruleArea()
			for _, i := range idxs {
				if cands[i].Area.ruleArea() == area {
					matched = append(matched, i)
				}
			}
		}

		merged := cands[bestCandidate(cands, matched)]
		merged.TranscriptID = mergeTranscripts(cands, matched)
		merged.ExonNumber = mergeExonNumbers(cands, matched)
		for _, i := range matched {
			if cands[i].PctgRegion > merged.PctgRegion {
				merged.PctgRegion = cands[i].PctgRegion
			}
			if cands[i].PctgArea > merged.PctgArea {
				merged.PctgArea = cands[i].PctgArea
			}
		}
		out = append(out, merged)
	}
	return out
}

// matchRule returns the subset of idxs whose area matches the first rule
// with any match, or nil when no area appears in the rules list.
func matchRule(cands []Candidate, idxs []int, rules []Area) []int {
	for _, rule := range rules {
		var matched []int
		for _, i := range idxs {
			if cands[i].Area.ruleArea() == rule {
				matched = append(matched, i)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// bestCandidate picks the winner among same-priority candidates: highest
// region percentage, then highest area percentage, then smallest distance,
// then ascending (gene, transcript, exon) key.
func bestCandidate(cands []Candidate, idxs []int) int {
	best := idxs[0]
	for _, i := range idxs[1:] {
		if candidateLess(&cands[i], &cands[best]) {
			best = i
		}
	}
	return best
}

func candidateLess(a, b *Candidate) bool {
	if a.PctgRegion != b.PctgRegion {
		return a.PctgRegion > b.PctgRegion
	}
	if a.PctgArea != b.PctgArea {
		return a.PctgArea > b.PctgArea
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.GeneID != b.GeneID {
		return a.GeneID < b.GeneID
	}
	if a.TranscriptID != b.TranscriptID {
		return a.TranscriptID < b.TranscriptID
	}
	return exonNumberLess(a.ExonNumber, b.ExonNumber)
}

// exonNumberLess orders exon numbers numerically when possible.
func exonNumberLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// mergeExonNumbers unions the exon numbers of the given candidates into an
// ascending comma-separated list.
func mergeExonNumbers(cands []Candidate, idxs []int) string {
	seen := make(map[string]bool)
	var nums []string
	for _, i := range idxs {
		n := cands[i].ExonNumber
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return exonNumberLess(nums[i], nums[j]) })
	return strings.Join(nums, ",")
}

// mergeTranscripts unions the transcript IDs of the given candidates into
// an ascending comma-separated list.
func mergeTranscripts(cands []Candidate, idxs []int) string {
	seen := make(map[string]bool)
	var ids []string
	for _, i := range idxs {
		id := cands[i].TranscriptID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
