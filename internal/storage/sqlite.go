package storage

import (
	"database/sql"
	"fmt"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	depth INTEGER NOT NULL,
	status_code INTEGER,
	content_type TEXT,
	content_length INTEGER,
	link_count INTEGER,
	crawled_at TIMESTAMP,
	error TEXT,
	UNIQUE (run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_url ON pages(url);
CREATE INDEX IF NOT EXISTS idx_status_code ON pages(status_code);
CREATE INDEX IF NOT EXISTS idx_depth ON pages(depth);
`

// SQLiteStorage provides SQLite-based storage for queryable data
type SQLiteStorage struct {
	db *sql.DB
}

// PageFilter narrows QueryPages. Zero values match everything.
type PageFilter struct {
	RunID      string
	StatusCode int
	Depth      *int
}

// PageStats counts the pages of one run, or of all runs when RunID is empty
type PageStats struct {
	Total      int
	Successful int
	Failed     int
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SavePage saves a page result to SQLite
func (s *SQLiteStorage) SavePage(result types.PageResult) error {
	query := `
		INSERT OR REPLACE INTO pages
		(run_id, url, depth, status_code, content_type, content_length, link_count, crawled_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		result.RunID,
		result.URL,
		result.Depth,
		result.StatusCode,
		result.ContentType,
		result.ContentLength,
		result.LinkCount,
		result.CrawledAt,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", result.URL, err)
	}

	return nil
}

// QueryPages returns the pages matching filter in crawl order
func (s *SQLiteStorage) QueryPages(filter PageFilter) ([]types.PageResult, error) {
	query := "SELECT run_id, url, depth, status_code, content_type, content_length, link_count, crawled_at, error FROM pages WHERE 1=1"
	args := make([]any, 0)

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}

	if filter.StatusCode != 0 {
		query += " AND status_code = ?"
		args = append(args, filter.StatusCode)
	}

	if filter.Depth != nil {
		query += " AND depth = ?"
		args = append(args, *filter.Depth)
	}

	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	results := make([]types.PageResult, 0)
	for rows.Next() {
		var result types.PageResult
		err := rows.Scan(
			&result.RunID,
			&result.URL,
			&result.Depth,
			&result.StatusCode,
			&result.ContentType,
			&result.ContentLength,
			&result.LinkCount,
			&result.CrawledAt,
			&result.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// GetStats returns crawl statistics
func (s *SQLiteStorage) GetStats(runID string) (PageStats, error) {
	var stats PageStats

	where, args := "WHERE 1=1", []any{}
	if runID != "" {
		where, args = "WHERE run_id = ?", []any{runID}
	}

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status_code = 200 AND error = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status_code != 200 OR error != '' THEN 1 ELSE 0 END), 0)
		FROM pages `+where, args...).Scan(&stats.Total, &stats.Successful, &stats.Failed)
	if err != nil {
		return PageStats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
