package duckdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/gtf"
	"github.com/rgmatch/rgmatch/internal/match"
)

func sampleResults() []Result {
	region := bed.Region{Chrom: "chr1", Start: 800, End: 900, Metadata: []string{"peak1"}}
	return []Result{
		{
			Region: region,
			Candidate: match.Candidate{
				Start:        1000,
				End:          1200,
				Strand:       gtf.Positive,
				ExonNumber:   "1",
				Area:         match.AreaTSS,
				TranscriptID: "T1",
				GeneID:       "G1",
				Distance:     150,
				PctgRegion:   100,
				PctgArea:     50.5,
				TSSDistance:  -150,
			},
		},
		{
			Region: region,
			Candidate: match.Candidate{
				Start:        1000,
				End:          1200,
				Strand:       gtf.Positive,
				ExonNumber:   "1",
				Area:         match.AreaPromoter,
				TranscriptID: "T1",
				GeneID:       "G1",
				Distance:     150,
				PctgRegion:   20,
				PctgArea:     1.5,
				TSSDistance:  -150,
			},
		},
	}
}

func TestStoreWriteAndCount(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteResults(sampleResults()))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var area, geneID string
	var distance int64
	err = s.DB().QueryRow(
		"SELECT area, gene_id, distance FROM annotations WHERE area = 'TSS'",
	).Scan(&area, &geneID, &distance)
	require.NoError(t, err)
	assert.Equal(t, "TSS", area)
	assert.Equal(t, "G1", geneID)
	assert.Equal(t, int64(150), distance)
}

func TestStoreWriteEmpty(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteResults(nil))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStoreClear(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteResults(sampleResults()))
	require.NoError(t, s.Clear())

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.duckdb")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteResults(sampleResults()))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
