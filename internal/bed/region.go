// Package bed provides BED region parsing.
package bed

import "fmt"

// Region is a genomic interval from a BED file.
type Region struct {
	Chrom    string
	Start    int64
	End      int64
	Metadata []string // extra BED columns beyond chrom/start/end
}

// Length returns the region length in bases (closed interval).
func (r *Region) Length() int64 {
	return r.End - r.Start + 1
}

// Midpoint returns the region midpoint, rounded down.
func (r *Region) Midpoint() int64 {
	return (r.Start + r.End) / 2
}

// ID returns the region identifier chrom_start_end.
func (r *Region) ID() string {
	return fmt.Sprintf("%s_%d_%d", r.Chrom, r.Start, r.End)
}
