// Package main provides the rgmatch command-line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/duckdb"
	"github.com/rgmatch/rgmatch/internal/gtf"
	"github.com/rgmatch/rgmatch/internal/match"
	"github.com/rgmatch/rgmatch/internal/output"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// annotateOptions collects the root command flags.
type annotateOptions struct {
	gtfPath    string
	bedPath    string
	outputPath string
	report     string
	threads    int
	distance   int64
	tss        float64
	tts        float64
	promoter   float64
	percArea   float64
	percRegion float64
	rules      string
	geneTag    string
	transcript string
	compat     string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &annotateOptions{}

	cmd := &cobra.Command{
		Use:   "rgmatch",
		Short: "Annotate genomic regions with overlapping or nearby gene features",
		Long: `rgmatch maps genomic regions from a BED file to gene annotations from a
GTF file. Each region is reported with the feature it relates to (TSS,
promoter, exon, intron, gene body, TTS or up/downstream proximity) at exon,
transcript or gene level.`,
		Example: `  rgmatch -g annotation.gtf -b peaks.bed -o peaks_annotated.txt
  rgmatch -g annotation.gtf.gz -b peaks.bed.gz -o out.txt -r gene -q 50
  rgmatch -g annotation.gtf -b peaks.bed -o out.txt --db results.duckdb`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.gtfPath, "gtf", "g", "", "GTF annotation file (required)")
	flags.StringVarP(&opts.bedPath, "bed", "b", "", "region BED file (required)")
	flags.StringVarP(&opts.outputPath, "output", "o", "-", "output file (default: stdout)")
	flags.StringVarP(&opts.report, "report", "r", "exon", "report level: exon, transcript or gene")
	flags.IntVarP(&opts.threads, "threads", "j", match.DefaultWorkers, "number of worker threads")
	flags.Int64VarP(&opts.distance, "distance", "q", 10, "maximum distance in kb to report associations")
	flags.Float64VarP(&opts.tss, "tss", "t", 200, "TSS region distance in bp")
	flags.Float64VarP(&opts.tts, "tts", "s", 0, "TTS region distance in bp")
	flags.Float64VarP(&opts.promoter, "promoter", "p", 1300, "promoter region distance in bp")
	flags.Float64VarP(&opts.percArea, "perc_area", "v", 90, "area overlap threshold (0-100)")
	flags.Float64VarP(&opts.percRegion, "perc_region", "w", 50, "region overlap threshold (0-100)")
	flags.StringVarP(&opts.rules, "rules", "R", "", "comma-separated area priority list")
	flags.StringVarP(&opts.geneTag, "gene-tag", "G", "gene_id", "GTF attribute key for gene IDs")
	flags.StringVarP(&opts.transcript, "transcript-tag", "T", "transcript_id", "GTF attribute key for transcript IDs")
	flags.StringVar(&opts.compat, "compat", "comprehensive", "proximity slot behavior: comprehensive or legacy")
	flags.StringVar(&opts.dbPath, "db", "", "also append results to a DuckDB database")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	cmd.MarkFlagRequired("gtf")
	cmd.MarkFlagRequired("bed")

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDownloadCmd())

	return cmd
}

// applyConfigDefaults overrides unset flags from ~/.rgmatch.yaml.
func applyConfigDefaults(cmd *cobra.Command) error {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetConfigName(".rgmatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(home)
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var bindErr error
	for _, s := range settings {
		f := cmd.Flags().Lookup(s.key)
		if f == nil || f.Changed || !viper.IsSet(s.key) {
			continue
		}
		if err := cmd.Flags().Set(s.key, viper.GetString(s.key)); err != nil {
			bindErr = fmt.Errorf("config value for %s: %w", s.key, err)
		}
	}
	return bindErr
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}

func runAnnotate(opts *annotateOptions) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	if _, err := os.Stat(opts.gtfPath); err != nil {
		return fmt.Errorf("GTF file not found: %s", opts.gtfPath)
	}
	if _, err := os.Stat(opts.bedPath); err != nil {
		return fmt.Errorf("BED file not found: %s", opts.bedPath)
	}

	logger.Info("parsing GTF file", zap.String("path", opts.gtfPath))
	index, err := gtf.ParseFile(opts.gtfPath, gtf.ParseOptions{
		GeneIDTag:       cfg.GeneIDTag,
		TranscriptIDTag: cfg.TranscriptIDTag,
	})
	if err != nil {
		return err
	}
	logger.Info("loaded annotation",
		zap.Int("genes", index.GeneCount()),
		zap.Int("chromosomes", len(index.Chromosomes())))
	if index.SkippedStrand > 0 {
		logger.Warn("skipped rows with invalid strand", zap.Int("rows", index.SkippedStrand))
	}
	if index.SkippedMalformed > 0 {
		logger.Warn("skipped malformed GTF rows", zap.Int("rows", index.SkippedMalformed))
	}

	logger.Info("parsing BED file", zap.String("path", opts.bedPath))
	reader, err := bed.NewReader(opts.bedPath)
	if err != nil {
		return err
	}
	regions, err := reader.ReadAll()
	reader.Close()
	if err != nil {
		return err
	}
	logger.Info("loaded regions", zap.Int("regions", len(regions)))
	if reader.SkippedMalformed() > 0 {
		logger.Warn("skipped malformed BED lines", zap.Int("lines", reader.SkippedMalformed()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	matcher := match.NewMatcher(index, cfg)
	matcher.SetLogger(logger)
	matcher.SetWorkers(opts.threads)

	out, err := newSink(opts, reader.NumMetaColumns())
	if err != nil {
		return err
	}

	if err := out.writer.WriteHeader(); err != nil {
		out.abort()
		return fmt.Errorf("write header: %w", err)
	}

	if err := matcher.MatchAll(ctx, regions, out); err != nil {
		out.abort()
		return err
	}

	if err := out.commit(); err != nil {
		return err
	}

	logger.Info("done", zap.String("output", opts.outputPath))
	return nil
}

// buildConfig turns CLI options into a validated matcher config.
func buildConfig(opts *annotateOptions) (*match.Config, error) {
	cfg := match.DefaultConfig()

	level, err := match.ParseReportLevel(opts.report)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	cfg.SetDistanceKB(opts.distance)
	cfg.TSS = opts.tss
	cfg.TTS = opts.tts
	cfg.Promoter = opts.promoter
	cfg.PercArea = opts.percArea
	cfg.PercRegion = opts.percRegion
	cfg.GeneIDTag = opts.geneTag
	cfg.TranscriptIDTag = opts.transcript

	if opts.rules != "" {
		if err := cfg.ParseRules(opts.rules); err != nil {
			return nil, err
		}
	}

	compat, err := match.ParseCompatMode(opts.compat)
	if err != nil {
		return nil, err
	}
	cfg.Compat = compat

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sink fans annotation rows out to the tab writer and, when configured, a
// DuckDB store.
type sink struct {
	writer interface {
		WriteHeader() error
		Write(*bed.Region, *match.Candidate) error
		Flush() error
	}
	file  *output.FileWriter // nil when writing to stdout
	store *duckdb.Store      // nil unless --db is set
	batch []duckdb.Result
}

func newSink(opts *annotateOptions, metaCols int) (*sink, error) {
	s := &sink{}

	if opts.outputPath == "" || opts.outputPath == "-" {
		s.writer = output.NewTabWriter(os.Stdout, metaCols)
	} else {
		fw, err := output.NewFileWriter(filepath.Clean(opts.outputPath), metaCols)
		if err != nil {
			return nil, err
		}
		s.file = fw
		s.writer = fw
	}

	if opts.dbPath != "" {
		store, err := duckdb.Open(opts.dbPath)
		if err != nil {
			if s.file != nil {
				s.file.Abort()
			}
			return nil, err
		}
		s.store = store
	}

	return s, nil
}

// Write implements match.RowWriter.
func (s *sink) Write(r *bed.Region, c *match.Candidate) error {
	if err := s.writer.Write(r, c); err != nil {
		return err
	}
	if s.store != nil {
		s.batch = append(s.batch, duckdb.Result{Region: *r, Candidate: *c})
	}
	return nil
}

func (s *sink) commit() error {
	if s.store != nil {
		defer s.store.Close()
		if err := s.store.WriteResults(s.batch); err != nil {
			if s.file != nil {
				s.file.Abort()
			}
			return fmt.Errorf("write results to database: %w", err)
		}
	}
	if s.file != nil {
		return s.file.Commit()
	}
	return s.writer.Flush()
}

func (s *sink) abort() {
	if s.file != nil {
		s.file.Abort()
	}
	if s.store != nil {
		s.store.Close()
	}
}
