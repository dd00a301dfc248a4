package match

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/gtf"
)

// DefaultWorkers is the default worker pool size.
const DefaultWorkers = 8

// RowWriter receives output candidates in input-region order.
type RowWriter interface {
	Write(r *bed.Region, c *Candidate) error
}

// Matcher drives the per-region matcher over a gene index with a fixed
// worker pool. The index and config are shared read-only across workers;
// each worker owns its candidate buffers.
type Matcher struct {
	index   *gtf.Index
	cfg     *Config
	logger  *zap.Logger
	workers int
}

// NewMatcher creates a matcher over the given index and config.
func NewMatcher(index *gtf.Index, cfg *Config) *Matcher {
	return &Matcher{
		index:   index,
		cfg:     cfg,
		logger:  zap.NewNop(),
		workers: DefaultWorkers,
	}
}

// SetLogger sets the logger for warnings.
func (m *Matcher) SetLogger(l *zap.Logger) {
	m.logger = l
}

// SetWorkers sets the worker pool size. Values below 1 keep the default.
func (m *Matcher) SetWorkers(n int) {
	if n > 0 {
		m.workers = n
	}
}

// OrderRegions groups regions by chromosome (sorted lexically) and sorts
// each chromosome's regions by start coordinate, preserving input order for
// equal starts.
func OrderRegions(regions []bed.Region) []bed.Region {
	byChrom := make(map[string][]bed.Region)
	var chroms []string
	for _, r := range regions {
		if _, ok := byChrom[r.Chrom]; !ok {
			chroms = append(chroms, r.Chrom)
		}
		byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
	}
	sort.Strings(chroms)

	ordered := make([]bed.Region, 0, len(regions))
	for _, chrom := range chroms {
		rs := byChrom[chrom]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
		ordered = append(ordered, rs...)
	}
	return ordered
}

// MatchAll matches every region against the index and streams the collapsed
// rows to w, preserving region order. Chromosomes absent from the
// annotation are logged once and produce no rows.
func (m *Matcher) MatchAll(ctx context.Context, regions []bed.Region, w RowWriter) error {
	ordered := regions

	seen := make(map[string]bool)
	for _, r := range ordered {
		if !seen[r.Chrom] {
			seen[r.Chrom] = true
			if m.index.Chrom(r.Chrom) == nil {
				m.logger.Warn("chromosome not found in annotation", zap.String("chrom", r.Chrom))
			}
		}
	}

	items := make(chan WorkItem, 2*m.workers)
	go func() {
		defer close(items)
		for seq := range ordered {
			select {
			case items <- WorkItem{Seq: seq, Region: &ordered[seq]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := m.parallelMatch(ctx, items)

	if err := OrderedCollect(results, func(res WorkResult) error {
		for i := range res.Cands {
			if err := w.Write(res.Region, &res.Cands[i]); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return ctx.Err()
}
