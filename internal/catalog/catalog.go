// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes the harvested artifact tree into SQLite so the
// collection can be searched by title. The tree stays the source of truth:
// the catalog is derived data and can be rebuilt at any time.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// Dir holds the catalog inside the output root. Its leading dot keeps
	// it apart from the year directories.
	Dir    = ".catalog"
	dbFile = "catalog.db"
)

// Store is the artifact catalog.
type Store struct {
	db         *sql.DB
	root       string
	maxResults int
}

// Open opens or creates the catalog of the artifact tree at root.
func Open(root string, maxResults int) (*Store, error) {
	dbDir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	s := &Store{db: db, root: root, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			year INTEGER NOT NULL,
			title TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_year ON artifacts(year)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='artifacts_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE artifacts_fts USING fts5(title, content=artifacts, content_rowid=rowid)`,
		`CREATE TRIGGER artifacts_ai AFTER INSERT ON artifacts BEGIN
			INSERT INTO artifacts_fts(rowid, title) VALUES (new.rowid, new.title);
		END`,
		`CREATE TRIGGER artifacts_ad AFTER DELETE ON artifacts BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, title) VALUES('delete', old.rowid, old.title);
		END`,
		`CREATE TRIGGER artifacts_au AFTER UPDATE ON artifacts BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, title) VALUES('delete', old.rowid, old.title);
			INSERT INTO artifacts_fts(rowid, title) VALUES (new.rowid, new.title);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IndexSummary holds counts from one indexing run.
type IndexSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
}

// Total returns the number of artifacts seen on disk.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped
}

// Index walks <root>/<year>/*.pdf and brings the catalog in line with it:
// new files are added, changed ones updated and vanished ones removed.
func (s *Store) Index(ctx context.Context, w io.Writer) (IndexSummary, error) {
	var summary IndexSummary

	stored := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `SELECT path, mod_time FROM artifacts`)
	if err != nil {
		return summary, fmt.Errorf("reading catalog: %w", err)
	}
	for rows.Next() {
		var p, mt string
		if err := rows.Scan(&p, &mt); err != nil {
			rows.Close()
			return summary, fmt.Errorf("scanning catalog: %w", err)
		}
		stored[p] = mt
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("reading catalog: %w", err)
	}

	years, err := os.ReadDir(s.root)
	if err != nil {
		return summary, fmt.Errorf("reading artifact root %s: %w", s.root, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	for _, yd := range years {
		year, ok := yearDir(yd)
		if !ok {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, yd.Name()))
		if err != nil {
			return summary, fmt.Errorf("reading %s: %w", yd.Name(), err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if !isArtifact(f) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", f.Name(), err)
				continue
			}
			rel := filepath.Join(yd.Name(), f.Name())
			seen[rel] = true
			modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

			prev, known := stored[rel]
			if known && prev == modTime {
				summary.Skipped++
				continue
			}
			title := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (path, year, title, size, mod_time) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(path) DO UPDATE SET
					year=excluded.year, title=excluded.title, size=excluded.size, mod_time=excluded.mod_time`,
				rel, year, title, info.Size(), modTime,
			); err != nil {
				return summary, fmt.Errorf("indexing %s: %w", rel, err)
			}
			if known {
				fmt.Fprintf(w, "updated %s\n", rel)
				summary.Updated++
			} else {
				fmt.Fprintf(w, "indexed %s\n", rel)
				summary.Indexed++
			}
		}
	}

	for p := range stored {
		if seen[p] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE path = ?`, p); err != nil {
			return summary, fmt.Errorf("removing %s: %w", p, err)
		}
		fmt.Fprintf(w, "removed %s\n", p)
		summary.Removed++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing catalog: %w", err)
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed)
	return summary, nil
}

func yearDir(e fs.DirEntry) (int, bool) {
	if !e.IsDir() || len(e.Name()) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(e.Name())
	return y, err == nil
}

// isArtifact skips scratch files and in-flight downloads.
func isArtifact(e fs.DirEntry) bool {
	name := e.Name()
	return !e.IsDir() && !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Entry is one catalogued artifact.
type Entry struct {
	Path     string    `json:"path" yaml:"path"`
	Year     int       `json:"year" yaml:"year"`
	Title    string    `json:"title" yaml:"title"`
	Size     int64     `json:"size" yaml:"size"`
	Modified time.Time `json:"modified" yaml:"modified"`
}

// QueryOptions holds parameters for catalog queries.
type QueryOptions struct {
	// Query is an FTS5 match expression over titles.
	Query string
	// Year restricts results to one year when non-zero.
	Year int
	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// ErrEmptyQuery is returned by Search when neither text nor year is given.
var ErrEmptyQuery = errors.New("query is empty: provide search text or a year")

// Search finds artifacts. Full-text results are ranked by relevance;
// year-only results are sorted by title.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	if opts.Query == "" && opts.Year == 0 {
		return nil, ErrEmptyQuery
	}
	return s.query(ctx, opts)
}

func (s *Store) query(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	if opts.Query != "" {
		qb.WriteString(`SELECT a.path, a.year, a.title, a.size, a.mod_time
			FROM artifacts_fts
			JOIN artifacts a ON a.rowid = artifacts_fts.rowid
			WHERE artifacts_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT a.path, a.year, a.title, a.size, a.mod_time
			FROM artifacts a
			WHERE 1=1`)
	}
	if opts.Year != 0 {
		qb.WriteString(` AND a.year = ?`)
		args = append(args, opts.Year)
	}
	if opts.Query != "" {
		qb.WriteString(` ORDER BY artifacts_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY a.year DESC, a.title`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			mt string
		)
		if err := rows.Scan(&e.Path, &e.Year, &e.Title, &e.Size, &mt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		e.Modified, _ = time.Parse(time.RFC3339Nano, mt)
		out = append(out, e)
	}
	return out, rows.Err()
}
