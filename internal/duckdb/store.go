// Package duckdb persists annotation results in a DuckDB database so they
// can be queried with SQL after a run.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/rgmatch/rgmatch/internal/bed"
	"github.com/rgmatch/rgmatch/internal/match"
)

// Store manages a DuckDB connection for annotation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates the annotations table if it doesn't exist.
// Column names mirror the TSV output.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS annotations (
		chrom VARCHAR,
		start BIGINT,
		end_ BIGINT,
		area VARCHAR,
		gene_id VARCHAR,
		transcript_id VARCHAR,
		exon_number VARCHAR,
		strand VARCHAR,
		distance BIGINT,
		tss_distance BIGINT,
		pctg_region DOUBLE,
		pctg_area DOUBLE
	)`)
	return err
}

// Result is one annotation row ready to be written.
type Result struct {
	Region    bed.Region
	Candidate match.Candidate
}

// WriteResults batch-inserts annotation rows using the Appender API.
func (s *Store) WriteResults(results []Result) error {
	if len(results) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "annotations")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range results {
		c := &r.Candidate
		if err := appender.AppendRow(
			r.Region.Chrom, r.Region.Start, r.Region.End,
			c.Area.String(), c.GeneID, c.TranscriptID, c.ExonNumber,
			c.Strand.String(), c.Distance, c.TSSDistance,
			c.PctgRegion, c.PctgArea,
		); err != nil {
			return fmt.Errorf("append annotation: %w", err)
		}
	}

	return appender.Flush()
}

// Count returns the number of annotation rows in the store.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM annotations").Scan(&count)
	return count, err
}

// Clear removes all annotation rows.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM annotations")
	return err
}
