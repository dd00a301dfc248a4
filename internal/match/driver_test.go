package match

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/gtf"
)

const driverGTF = `chr1	TEST	gene	1000	2000	.	+	.	gene_id "G1";
chr1	TEST	exon	1000	2000	.	+	.	gene_id "G1"; transcript_id "T1";
chr1	TEST	gene	50000	60000	.	-	.	gene_id "G2";
chr1	TEST	exon	50000	60000	.	-	.	gene_id "G2"; transcript_id "T2";
chr2	TEST	gene	5000	6000	.	+	.	gene_id "G3";
chr2	TEST	exon	5000	6000	.	+	.	gene_id "G3"; transcript_id "T3";
`

func driverIndex(t *testing.T) *gtf.Index {
	t.Helper()
	idx, err := gtf.Parse(strings.NewReader(driverGTF), gtf.ParseOptions{})
	require.NoError(t, err)
	return idx
}

// rowRecorder collects rows in arrival order.
type rowRecorder struct {
	rows []string
}

func (rr *rowRecorder) Write(r *bed.Region, c *Candidate) error {
	rr.rows = append(rr.rows, r.ID()+"|"+c.GeneID+"|"+c.Area.String())
	return nil
}

func TestOrderRegions(t *testing.T) {
	regions := []bed.Region{
		{Chrom: "chr2", Start: 100, End: 200},
		{Chrom: "chr1", Start: 500, End: 600},
		{Chrom: "chr1", Start: 100, End: 200},
	}

	ordered := OrderRegions(regions)
	require.Len(t, ordered, 3)
	assert.Equal(t, "chr1", ordered[0].Chrom)
	assert.Equal(t, int64(100), ordered[0].Start)
	assert.Equal(t, int64(500), ordered[1].Start)
	assert.Equal(t, "chr2", ordered[2].Chrom)
}

func TestMatchAllPreservesOrder(t *testing.T) {
	idx := driverIndex(t)
	cfg := DefaultConfig()

	regions := []bed.Region{
		{Chrom: "chr1", Start: 55000, End: 55100}, // inside G2
		{Chrom: "chr2", Start: 5100, End: 5200},   // inside G3
		{Chrom: "chr1", Start: 1100, End: 1200},   // inside G1
	}

	for _, workers := range []int{1, 4} {
		m := NewMatcher(idx, cfg)
		m.SetWorkers(workers)

		rr := &rowRecorder{}
		require.NoError(t, m.MatchAll(context.Background(), regions, rr))

		require.Len(t, rr.rows, 3, "workers=%d", workers)
		assert.Equal(t, "chr1_55000_55100|G2|1st_EXON", rr.rows[0])
		assert.Equal(t, "chr2_5100_5200|G3|1st_EXON", rr.rows[1])
		assert.Equal(t, "chr1_1100_1200|G1|1st_EXON", rr.rows[2])
	}
}

func TestMatchAllManyRegionsOrdered(t *testing.T) {
	idx := driverIndex(t)
	cfg := DefaultConfig()

	var regions []bed.Region
	for i := int64(0); i < 200; i++ {
		regions = append(regions, bed.Region{
			Chrom: "chr1",
			Start: 1000 + i,
			End:   1050 + i,
		})
	}

	m := NewMatcher(idx, cfg)
	m.SetWorkers(8)

	rr := &rowRecorder{}
	require.NoError(t, m.MatchAll(context.Background(), regions, rr))

	require.Len(t, rr.rows, 200)
	for i, row := range rr.rows {
		assert.Equal(t, regions[i].ID(), strings.SplitN(row, "|", 2)[0])
	}
}

func TestMatchAllUnknownChromosome(t *testing.T) {
	idx := driverIndex(t)
	cfg := DefaultConfig()

	regions := []bed.Region{
		{Chrom: "chrUn_gl000220", Start: 100, End: 200},
		{Chrom: "chr1", Start: 1100, End: 1200},
	}

	m := NewMatcher(idx, cfg)
	rr := &rowRecorder{}
	require.NoError(t, m.MatchAll(context.Background(), regions, rr))

	// The unknown chromosome contributes no rows.
	require.Len(t, rr.rows, 1)
	assert.Contains(t, rr.rows[0], "G1")
}

func TestMatchAllCanceledContext(t *testing.T) {
	idx := driverIndex(t)
	cfg := DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMatcher(idx, cfg)
	rr := &rowRecorder{}
	err := m.MatchAll(ctx, []bed.Region{{Chrom: "chr1", Start: 1100, End: 1200}}, rr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchAllEmptyRegions(t *testing.T) {
	idx := driverIndex(t)
	m := NewMatcher(idx, DefaultConfig())

	rr := &rowRecorder{}
	require.NoError(t, m.MatchAll(context.Background(), nil, rr))
	assert.Empty(t, rr.rows)
}
