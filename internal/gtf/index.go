package gtf

import "sort"

// ChromIndex holds the genes of one chromosome, sorted by start coordinate.
type ChromIndex struct {
	Genes []*Gene
	// MaxGeneLength is the largest end-start span on the chromosome. It bounds
	// how far before a region the driver must rewind its binary search.
	MaxGeneLength int64
}

// SearchStart returns the index of the first gene whose start is >= threshold.
func (ci *ChromIndex) SearchStart(threshold int64) int {
	return sort.Search(len(ci.Genes), func(i int) bool {
		return ci.Genes[i].Start >= threshold
	})
}

// Index is the full annotation index built from a GTF file.
type Index struct {
	// SkippedStrand counts rows dropped for an unparseable strand column.
	SkippedStrand int
	// SkippedMalformed counts rows dropped for too few columns or
	// unparseable start/end coordinates.
	SkippedMalformed int

	chroms map[string]*ChromIndex
}

func newIndex() *Index {
	return &Index{chroms: make(map[string]*ChromIndex)}
}

func (idx *Index) add(g *Gene) {
	ci, ok := idx.chroms[g.Chrom]
	if !ok {
		ci = &ChromIndex{}
		idx.chroms[g.Chrom] = ci
	}
	ci.Genes = append(ci.Genes, g)
}

// Chrom returns the index for a chromosome, or nil if it has no genes.
func (idx *Index) Chrom(chrom string) *ChromIndex {
	return idx.chroms[chrom]
}

// Chromosomes returns the sorted list of chromosomes with genes.
func (idx *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(idx.chroms))
	for chrom := range idx.chroms {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// GeneCount returns the total number of genes in the index.
func (idx *Index) GeneCount() int {
	count := 0
	for _, ci := range idx.chroms {
		count += len(ci.Genes)
	}
	return count
}

// finalize computes derived state after parsing: transcript and gene
// boundaries, biological exon numbers, per-chromosome gene order and the
// maximum gene span.
func (idx *Index) finalize() {
	for _, ci := range idx.chroms {
		for _, g := range ci.Genes {
			for _, t := range g.Transcripts {
				t.calculateSize()
				t.renumber(g.Strand)
			}
			g.calculateSize()
		}

		sort.SliceStable(ci.Genes, func(i, j int) bool {
			if ci.Genes[i].Start != ci.Genes[j].Start {
				return ci.Genes[i].Start < ci.Genes[j].Start
			}
			return ci.Genes[i].ID < ci.Genes[j].ID
		})

		ci.MaxGeneLength = 0
		for _, g := range ci.Genes {
			if l := g.End - g.Start; l > ci.MaxGeneLength {
				ci.MaxGeneLength = l
			}
		}
	}
}
