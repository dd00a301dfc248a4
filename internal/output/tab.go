// Package output provides annotation result writers.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/match"
)

// annotationColumns are the columns appended after the BED columns.
var annotationColumns = []string{
	"AREA",
	"GENE",
	"TRANSCRIPT",
	"EXON_NR",
	"STRAND",
	"DISTANCE",
	"TSS_DISTANCE",
	"PCTG_REGION",
	"PCTG_AREA",
}

// TabWriter writes annotation rows in tab-delimited format: the original
// BED columns (metadata padded to the header width) followed by the nine
// annotation columns.
type TabWriter struct {
	w        *bufio.Writer
	metaCols int
}

// NewTabWriter creates a writer for BED inputs with metaCols metadata
// columns.
func NewTabWriter(w io.Writer, metaCols int) *TabWriter {
	return &TabWriter{
		w:        bufio.NewWriter(w),
		metaCols: metaCols,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	columns := append([]string{"chrom", "start", "end"}, bed.Headers(tw.metaCols)...)
	columns = append(columns, annotationColumns...)
	_, err := tw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes a single annotation row.
func (tw *TabWriter) Write(r *bed.Region, c *match.Candidate) error {
	values := make([]string, 0, 3+tw.metaCols+len(annotationColumns))
	values = append(values,
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
	)
	for i := 0; i < tw.metaCols; i++ {
		if i < len(r.Metadata) {
			values = append(values, r.Metadata[i])
		} else {
			values = append(values, "-")
		}
	}

	exonNr := c.ExonNumber
	if exonNr == "" {
		exonNr = "-"
	}

	values = append(values,
		c.Area.String(),
		c.GeneID,
		c.TranscriptID,
		exonNr,
		c.Strand.String(),
		strconv.FormatInt(c.Distance, 10),
		strconv.FormatInt(c.TSSDistance, 10),
		fmt.Sprintf("%.2f", c.PctgRegion),
		fmt.Sprintf("%.2f", c.PctgArea),
	)

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FileWriter is a TabWriter backed by a temp file that is renamed into
// place on Commit, so a failed run never leaves a partial output file.
type FileWriter struct {
	*TabWriter
	tmp  *os.File
	path string
}

// NewFileWriter creates an atomic tab writer for the given output path.
func NewFileWriter(path string, metaCols int) (*FileWriter, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &FileWriter{
		TabWriter: NewTabWriter(tmp, metaCols),
		tmp:       tmp,
		path:      path,
	}, nil
}

// Commit flushes the writer and moves the temp file to its final path.
func (fw *FileWriter) Commit() error {
	if err := fw.Flush(); err != nil {
		fw.Abort()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := fw.tmp.Close(); err != nil {
		os.Remove(fw.tmp.Name())
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(fw.tmp.Name(), fw.path); err != nil {
		os.Remove(fw.tmp.Name())
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Abort discards the temp file.
func (fw *FileWriter) Abort() {
	fw.tmp.Close()
	os.Remove(fw.tmp.Name())
}
