package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// GENCODE FTP URLs
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// gencodeGTFURL returns the annotation GTF URL for the given assembly.
func gencodeGTFURL(assembly string) string {
	if strings.ToUpper(assembly) == "GRCH37" {
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	}
	return fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
}

func newDownloadCmd() *cobra.Command {
	var (
		assembly  string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a GENCODE annotation GTF",
		Long: `Download the GENCODE annotation GTF for use as rgmatch -g input.
Files are stored under ~/.rgmatch/<assembly>/ unless --output is given.`,
		Example: `  rgmatch download
  rgmatch download --assembly GRCh37
  rgmatch download --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(assembly, outputDir)
		},
	}

	cmd.Flags().StringVar(&assembly, "assembly", "GRCh38", "genome assembly: GRCh37 or GRCh38")
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default: ~/.rgmatch/)")

	return cmd
}

func runDownload(assembly, outputDir string) error {
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		outputDir = filepath.Join(home, ".rgmatch")
	}

	destDir := filepath.Join(outputDir, strings.ToLower(assembly))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", destDir, err)
	}

	gtfURL := gencodeGTFURL(assembly)
	gtfFile := filepath.Join(destDir, filepath.Base(gtfURL))

	if info, err := os.Stat(gtfFile); err == nil {
		fmt.Printf("%s already exists (%.1f MB), skipping download\n", gtfFile, megabytes(info.Size()))
	} else {
		fmt.Printf("Downloading GENCODE %s annotation for %s...\n", gencodeVersion, assembly)
		n, err := fetchGTF(gtfURL, gtfFile)
		if err != nil {
			return fmt.Errorf("downloading GTF: %w", err)
		}
		fmt.Printf("Saved %s (%.1f MB)\n", gtfFile, megabytes(n))
	}

	fmt.Printf("\nTo annotate regions, run:\n")
	fmt.Printf("  rgmatch -g %s -b regions.bed -o out.txt\n", gtfFile)

	return nil
}

// fetchGTF streams the annotation into place through a temp file, so an
// interrupted download never leaves a half-written GTF behind. The payload
// must start with the gzip magic bytes: GENCODE serves .gtf.gz, and the
// check keeps a proxy error page from masquerading as an annotation.
func fetchGTF(url, destPath string) (int64, error) {
	client := &http.Client{
		Timeout: 30 * time.Minute, // annotation files run to tens of MB
	}

	resp, err := client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	magic := make([]byte, 2)
	if _, err := io.ReadFull(resp.Body, magic); err != nil {
		return 0, fmt.Errorf("read annotation: %w", err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return 0, fmt.Errorf("unexpected content from %s: not a gzipped GTF", url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*")
	if err != nil {
		return 0, fmt.Errorf("create download file: %w", err)
	}

	_, err = tmp.Write(magic)
	var written int64
	if err == nil {
		written, err = io.Copy(tmp, resp.Body)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write annotation: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename annotation: %w", err)
	}

	return written + int64(len(magic)), nil
}

func megabytes(n int64) float64 {
	return float64(n) / (1 << 20)
}
