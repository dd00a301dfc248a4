package bed

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxMetadataColumns caps how many extra BED columns are kept per region.
// Standard BED defines nine columns after chrom/start/end.
const maxMetadataColumns = 9

// bedHeaders are the standard names of the BED columns after chrom/start/end.
var bedHeaders = []string{
	"name",
	"score",
	"strand",
	"thickStart",
	"thickEnd",
	"itemRgb",
	"blockCount",
	"blockSizes",
	"blockStarts",
}

// Headers returns the standard BED column names for n metadata columns.
func Headers(n int) []string {
	if n > len(bedHeaders) {
		n = len(bedHeaders)
	}
	return bedHeaders[:n]
}

// Reader reads regions from a BED file in chunks.
// Supports plain and gzip-compressed input (detected by magic bytes or a
// .gz suffix). Comment, browser and track lines are skipped, as are lines
// that do not parse as chrom/start/end.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	metaCols   int
	malformed  int
	eof        bool
}

// NewReader opens a BED file for reading. Use "-" for stdin.
func NewReader(path string) (*Reader, error) {
	if path == "-" {
		return NewReaderFrom(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open BED file: %w", err)
	}

	r := &Reader{file: file}

	// Sniff gzip magic bytes, then rewind.
	magic := make([]byte, 2)
	n, err := file.Read(magic)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read BED file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek BED file: %w", err)
	}

	if (n == 2 && magic[0] == 0x1f && magic[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = bufio.NewReader(file)
	}

	return r, nil
}

// NewReaderFrom creates a reader from an io.Reader (e.g. stdin).
func NewReaderFrom(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// ReadChunk reads up to max regions. It returns nil, nil once the input is
// exhausted.
func (r *Reader) ReadChunk(max int) ([]Region, error) {
	if r.eof || max <= 0 {
		return nil, nil
	}

	regions := make([]Region, 0, max)
	for len(regions) < max {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read BED line: %w", err)
		}
		if err == io.EOF {
			r.eof = true
		}
		if line != "" {
			r.lineNumber++
		}

		line = strings.TrimRight(line, "\r\n")
		if region, ok := r.parseLine(line); ok {
			regions = append(regions, region)
		}

		if r.eof {
			break
		}
	}

	if len(regions) == 0 {
		return nil, nil
	}
	return regions, nil
}

// ReadAll reads every remaining region from the input.
func (r *Reader) ReadAll() ([]Region, error) {
	var all []Region
	for {
		chunk, err := r.ReadChunk(4096)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			return all, nil
		}
		all = append(all, chunk...)
	}
}

// parseLine parses a single BED line. Skippable lines return ok=false;
// lines that look like data but do not parse are counted as malformed.
func (r *Reader) parseLine(line string) (Region, bool) {
	if strings.TrimSpace(line) == "" {
		return Region{}, false
	}
	if strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "browser") ||
		strings.HasPrefix(line, "track") {
		return Region{}, false
	}

	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		r.malformed++
		return Region{}, false
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		// header rows land here too: their start column is not an integer
		r.malformed++
		return Region{}, false
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		r.malformed++
		return Region{}, false
	}

	meta := fields[3:]
	if len(meta) > maxMetadataColumns {
		meta = meta[:maxMetadataColumns]
	}
	var metadata []string
	if len(meta) > 0 {
		metadata = make([]string, len(meta))
		copy(metadata, meta)
	}
	if len(metadata) > r.metaCols {
		r.metaCols = len(metadata)
	}

	return Region{
		Chrom:    fields[0],
		Start:    start,
		End:      end,
		Metadata: metadata,
	}, true
}

// NumMetaColumns returns the largest metadata column count seen so far.
func (r *Reader) NumMetaColumns() int {
	return r.metaCols
}

// SkippedMalformed returns the number of lines dropped so far for too few
// columns or unparseable start/end coordinates.
func (r *Reader) SkippedMalformed() int {
	return r.malformed
}

// LineNumber returns the number of lines read so far.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
