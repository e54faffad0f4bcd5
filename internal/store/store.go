// Package store persists rewrite requests, per-chunk model results, the
// final humanized outputs and a rewrite memory that lets an unchanged chunk
// skip the model call.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/peredit/internal"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath. The parent
// directory is created for file paths; ":memory:" is accepted as is.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps a ":memory:" database alive
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rewrite_requests (
		id TEXT PRIMARY KEY,
		paper TEXT NOT NULL,
		strength TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rewrite_results (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		chunk_idx INTEGER NOT NULL,
		service_name TEXT NOT NULL,
		model TEXT,
		rewritten_text TEXT NOT NULL,
		latency_ms INTEGER,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES rewrite_requests(id)
	);

	CREATE TABLE IF NOT EXISTS final_outputs (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		rewritten_text TEXT,
		humanized_text TEXT,
		strength TEXT,
		warnings TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES rewrite_requests(id)
	);

	CREATE TABLE IF NOT EXISTS rewrite_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		model TEXT NOT NULL,
		rewritten_text TEXT NOT NULL,
		service_used TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, model)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON rewrite_memory(source_text, model);
	CREATE INDEX IF NOT EXISTS idx_results_request ON rewrite_results(request_id);
	CREATE INDEX IF NOT EXISTS idx_outputs_request ON final_outputs(request_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRequest(ctx context.Context, req internal.RewriteRequest) error {
	if req.ID == "" {
		return errors.New("request id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewrite_requests (id, paper, strength, created_at) VALUES (?, ?, ?, ?)`,
		req.ID, req.Paper, req.Strength, req.Timestamp)
	return err
}

// ChunkResult is one model call made for a request.
type ChunkResult struct {
	ChunkIdx      int
	ServiceName   string
	Model         string
	RewrittenText string
	Latency       time.Duration
	Error         string
}

func (s *Store) SaveResult(ctx context.Context, requestID string, r ChunkResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewrite_results (id, request_id, chunk_idx, service_name, model, rewritten_text, latency_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), requestID, r.ChunkIdx, r.ServiceName, r.Model, r.RewrittenText, r.Latency.Milliseconds(), r.Error)
	return err
}

// SaveOutput records what was returned to the caller for requestID.
func (s *Store) SaveOutput(ctx context.Context, requestID, rewrittenText, humanizedText, strength string, warnings []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO final_outputs (id, request_id, rewritten_text, humanized_text, strength, warnings) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), requestID, rewrittenText, humanizedText, strength, strings.Join(warnings, "\n"))
	return err
}

// Output is a row from final_outputs.
type Output struct {
	RequestID     string
	RewrittenText string
	HumanizedText string
	Strength      string
	Warnings      []string
	CreatedAt     time.Time
}

// GetOutputs returns the outputs recorded for requestID, oldest first.
func (s *Store) GetOutputs(ctx context.Context, requestID string) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, COALESCE(rewritten_text, ''), COALESCE(humanized_text, ''), COALESCE(strength, ''), COALESCE(warnings, ''), created_at
		 FROM final_outputs WHERE request_id = ? ORDER BY created_at, rowid`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Output
	for rows.Next() {
		var o Output
		var warnings string
		if err := rows.Scan(&o.RequestID, &o.RewrittenText, &o.HumanizedText, &o.Strength, &warnings, &o.CreatedAt); err != nil {
			return nil, err
		}
		if warnings != "" {
			o.Warnings = strings.Split(warnings, "\n")
		}
		results = append(results, o)
	}
	return results, rows.Err()
}

// GetCachedRewrite returns the remembered rewrite of sourceText by model.
// Invalidated entries are reported as misses.
func (s *Store) GetCachedRewrite(ctx context.Context, sourceText, model string) (string, bool, error) {
	var rewritten string
	var invalidated bool

	key := normalizeText(sourceText)
	err := s.db.QueryRowContext(ctx,
		`SELECT rewritten_text, invalidated FROM rewrite_memory WHERE source_text = ? AND model = ?`,
		key, model).Scan(&rewritten, &invalidated)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE rewrite_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND model = ?`,
		time.Now(), key, model)

	return rewritten, true, err
}

// SaveToMemory remembers rewritten as the rewrite of sourceText by model,
// replacing any earlier entry (including an invalidated one).
func (s *Store) SaveToMemory(ctx context.Context, sourceText, model, rewritten, serviceUsed string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rewrite_memory (id, source_text, model, rewritten_text, service_used, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		uuid.NewString(), normalizeText(sourceText), model, rewritten, serviceUsed, now, now)
	return err
}

// MemoryEntry is a row from the rewrite_memory table.
type MemoryEntry struct {
	ID            string
	SourceText    string
	Model         string
	RewrittenText string
	ServiceUsed   string
	UsageCount    int
	Invalidated   bool
	LastUsed      time.Time
}

// CacheStats summarises rewrite memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	Requests       int
	Outputs        int
}

// InvalidateMemory marks an entry as stale without deleting it. It reports
// whether an entry with that id existed.
func (s *Store) InvalidateMemory(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE rewrite_memory SET invalidated = TRUE WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMemory permanently removes a rewrite memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rewrite_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all rewrite memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rewrite_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all rewrite memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, model, rewritten_text, COALESCE(service_used, ''), usage_count, invalidated, last_used FROM rewrite_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.Model, &e.RewrittenText, &e.ServiceUsed, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the rewrite memory and the job log.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0),
			(SELECT COUNT(*) FROM rewrite_requests),
			(SELECT COUNT(*) FROM final_outputs)
		FROM rewrite_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
		&stats.Requests,
		&stats.Outputs,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
