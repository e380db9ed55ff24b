// Package store persists structured cases, training records and embedded
// chunks.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/dgallion1/rticorpus/internal/embed"
)

// Case statuses.
const (
	CaseStructured = "structured" // structured, not yet parsed
	CaseParsed     = "parsed"
	CaseSkipped    = "skipped"
	CaseFailed     = "failed"
)

// Case is one scraped case page and what became of it.
type Case struct {
	Source      string    `json:"source"`
	Structured  string    `json:"structured,omitempty"`
	Instruction string    `json:"instruction,omitempty"`
	Response    string    `json:"response,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SQLite stores cases and chunks in a local SQLite file.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests. A single connection serializes all writers.
func Open(ctx context.Context, path string, log *slog.Logger) (*SQLite, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, log: log}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("sqlite store opened", "path", path)
	return s, nil
}

func (s *SQLite) init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS cases (
			source TEXT PRIMARY KEY,
			structured TEXT NOT NULL DEFAULT '',
			instruction TEXT NOT NULL DEFAULT '',
			response TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			source_file TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			vector TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (source_file, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// SaveCase inserts or replaces the case with the same source.
func (s *SQLite) SaveCase(ctx context.Context, c Case) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (source, structured, instruction, response, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			structured=excluded.structured,
			instruction=excluded.instruction,
			response=excluded.response,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		c.Source, c.Structured, c.Instruction, c.Response, c.Status, c.Error, now, now)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.Source, err)
	}
	return nil
}

// Cases lists cases in source order. An empty status lists all of them.
func (s *SQLite) Cases(ctx context.Context, status string) ([]Case, error) {
	query := `SELECT source, structured, instruction, response, status, error, updated_at FROM cases`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY source`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		var c Case
		var updated int64
		if err := rows.Scan(&c.Source, &c.Structured, &c.Instruction, &c.Response, &c.Status, &c.Error, &updated); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.UpdatedAt = time.Unix(updated, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveRecords upserts embedded chunks in one transaction. A nil vector stores
// the chunk without an embedding.
func (s *SQLite) SaveRecords(ctx context.Context, records []embed.Record) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (source_file, chunk_index, text, vector, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_file, chunk_index) DO UPDATE SET text=excluded.text, vector=excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, r := range records {
		var vec any
		if r.Vector != nil {
			vec = serializeVector(r.Vector)
		}
		if _, err := stmt.ExecContext(ctx, r.SourceFile, r.ChunkIndex, r.Text, vec, now); err != nil {
			return fmt.Errorf("save chunk %s#%d: %w", r.SourceFile, r.ChunkIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("saved chunk records", "count", len(records), "duration", time.Since(start))
	return nil
}

// ListRecords returns stored chunks ordered by source and index. An empty
// source lists every chunk.
func (s *SQLite) ListRecords(ctx context.Context, source string) ([]embed.Record, error) {
	query := `SELECT source_file, chunk_index, text, vector FROM chunks`
	var args []any
	if source != "" {
		query += ` WHERE source_file = ?`
		args = append(args, source)
	}
	query += ` ORDER BY source_file, chunk_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []embed.Record
	for rows.Next() {
		var r embed.Record
		var vec sql.NullString
		if err := rows.Scan(&r.SourceFile, &r.ChunkIndex, &r.Text, &vec); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if vec.Valid {
			v, err := deserializeVector(vec.String)
			if err != nil {
				return nil, fmt.Errorf("decode vector %s#%d: %w", r.SourceFile, r.ChunkIndex, err)
			}
			r.Vector = v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Vectors are stored as JSON text.
func serializeVector(v []float32) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func deserializeVector(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
