package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/matomesearch/matome/internal/models"
)

const (
	defaultHistoryLimit    = 20
	defaultSuggestionLimit = 10
	topQueryLimit          = 10
	minSuggestionPrefixLen = 2
)

// likeEscaper neutralizes LIKE wildcards in user-supplied filter text; the
// queries pair it with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		search_id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		mode TEXT NOT NULL,
		languages TEXT,
		sources TEXT,
		status TEXT NOT NULL,
		results_count INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMP NOT NULL,
		duration_ms REAL NOT NULL DEFAULT 0,
		client_ip TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_searches_timestamp ON searches(timestamp);
	CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT,
		url TEXT NOT NULL,
		snippet TEXT,
		source TEXT,
		language TEXT,
		score REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (search_id) REFERENCES searches(search_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_results_search_id ON results(search_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordSearch inserts one search record. A zero timestamp is filled in.
func (s *SQLiteStore) RecordSearch(ctx context.Context, rec *models.SearchRecord) error {
	languagesJSON, err := json.Marshal(rec.Languages)
	if err != nil {
		return fmt.Errorf("failed to marshal languages: %w", err)
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (search_id, query, mode, languages, sources, status, results_count, timestamp, duration_ms, client_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SearchID, rec.Query, rec.Mode, string(languagesJSON), string(sourcesJSON),
		rec.Status, rec.ResultsCount, rec.Timestamp, rec.DurationMS, rec.ClientIP,
	)
	return err
}

// RecordResults inserts the ranked results of a search in a transaction,
// numbered from 1 in rank order.
func (s *SQLiteStore) RecordResults(ctx context.Context, searchID string, results []models.ScoredResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (search_id, position, title, url, snippet, source, language, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, searchID, i+1, r.Title, r.URL, r.Snippet, r.Source, r.Language, r.Score); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// History returns the most recent searches, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int, query string) ([]*models.SearchRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows *sql.Rows
	var err error
	if query != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT search_id, query, mode, languages, sources, status, results_count, timestamp, duration_ms, client_ip
			 FROM searches WHERE query LIKE ? ESCAPE '\'
			 ORDER BY timestamp DESC LIMIT ?`,
			"%"+likeEscaper.Replace(query)+"%", limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT search_id, query, mode, languages, sources, status, results_count, timestamp, duration_ms, client_ip
			 FROM searches ORDER BY timestamp DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SearchRecord
	for rows.Next() {
		var rec models.SearchRecord
		var languagesJSON, sourcesJSON string
		if err := rows.Scan(&rec.SearchID, &rec.Query, &rec.Mode, &languagesJSON, &sourcesJSON,
			&rec.Status, &rec.ResultsCount, &rec.Timestamp, &rec.DurationMS, &rec.ClientIP); err != nil {
			return nil, err
		}
		if languagesJSON != "" {
			_ = json.Unmarshal([]byte(languagesJSON), &rec.Languages)
		}
		if sourcesJSON != "" {
			_ = json.Unmarshal([]byte(sourcesJSON), &rec.Sources)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Analytics aggregates the whole history table.
func (s *SQLiteStore) Analytics(ctx context.Context) (*models.Analytics, error) {
	out := &models.Analytics{StatusCounts: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(duration_ms), 0) FROM searches`,
	).Scan(&out.TotalSearches, &out.AvgDurationMS)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM searches GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	top, err := s.db.QueryContext(ctx,
		`SELECT query, COUNT(*) AS n FROM searches
		 GROUP BY query ORDER BY n DESC, query ASC LIMIT ?`,
		topQueryLimit,
	)
	if err != nil {
		return nil, err
	}
	defer top.Close()
	for top.Next() {
		var qc models.QueryCount
		if err := top.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, err
		}
		out.TopQueries = append(out.TopQueries, qc)
	}
	return out, top.Err()
}

// Suggestions returns distinct past queries starting with prefix. Prefixes
// shorter than two characters yield nothing.
func (s *SQLiteStore) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	if len(prefix) < minSuggestionPrefixLen {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT query FROM searches WHERE query LIKE ? ESCAPE '\'
		 ORDER BY query LIMIT ?`,
		likeEscaper.Replace(prefix)+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
