package gtf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseOptions control which GTF attributes identify genes and transcripts.
type ParseOptions struct {
	GeneIDTag       string // attribute key for gene IDs (default "gene_id")
	TranscriptIDTag string // attribute key for transcript IDs (default "transcript_id")
}

func (o *ParseOptions) defaults() {
	if o.GeneIDTag == "" {
		o.GeneIDTag = "gene_id"
	}
	if o.TranscriptIDTag == "" {
		o.TranscriptIDTag = "transcript_id"
	}
}

// ParseFile parses a GTF annotation file into a per-chromosome gene index.
// Gzipped files are detected by the .gz suffix.
func ParseFile(path string, opts ParseOptions) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Parse(reader, opts)
}

// Parse parses GTF content into a per-chromosome gene index.
func Parse(r io.Reader, opts ParseOptions) (*Index, error) {
	opts.defaults()

	scanner := bufio.NewScanner(r)
	// GTF attribute columns can get long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	idx := newIndex()
	genes := make(map[string]*Gene) // chrom-qualified gene key -> gene

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			idx.SkippedMalformed++
			continue
		}

		featureType := fields[2]
		switch featureType {
		case "gene", "transcript", "exon":
		default:
			continue
		}

		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			idx.SkippedMalformed++
			continue
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			idx.SkippedMalformed++
			continue
		}

		strand, ok := ParseStrand(fields[6])
		if !ok {
			idx.SkippedStrand++
			continue
		}

		attrs := parseAttributes(fields[8])
		geneID := attrs[opts.GeneIDTag]
		if geneID == "" {
			continue
		}

		chrom := fields[0]
		key := chrom + "\x00" + geneID
		g, ok := genes[key]
		if !ok {
			g = NewGene(geneID, chrom, strand)
			genes[key] = g
			idx.add(g)
		}

		switch featureType {
		case "gene":
			g.Start = start
			g.End = end
		case "transcript":
			if id := attrs[opts.TranscriptIDTag]; id != "" {
				t := g.Transcript(id)
				t.Start = start
				t.End = end
			}
		case "exon":
			if id := attrs[opts.TranscriptIDTag]; id != "" {
				g.Transcript(id).AddExon(start, end)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	idx.finalize()
	return idx, nil
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])
		value = strings.Trim(value, "\"")

		attrs[key] = value
	}

	return attrs
}
