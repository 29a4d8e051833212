package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ CrawlLogRepository = (*CrawlLogRepo)(nil)

type CrawlLogRepo struct {
	db *DB
}

func NewCrawlLogRepository(db *DB) *CrawlLogRepo {
	return &CrawlLogRepo{db: db}
}

func (r *CrawlLogRepo) AppendCrawlLog(entry *CrawlLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CrawledAt.IsZero() {
		entry.CrawledAt = time.Now().UTC()
	}

	var publisherID any
	if entry.PublisherID != nil {
		publisherID = *entry.PublisherID
	}

	_, err := r.db.Exec(`
		INSERT INTO crawl_log (
			id, publisher_id, source_url, status, content_hash,
			posts_found, posts_new, posts_updated, posts_removed, error, duration_ms, crawled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, publisherID, entry.SourceURL, string(entry.Status), entry.ContentHash,
		entry.PostsFound, entry.PostsNew, entry.PostsUpdated, entry.PostsRemoved, entry.Error, entry.DurationMs,
		entry.CrawledAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to append crawl log: %w", err)
	}
	return nil
}

// ListCrawlLog returns the newest entries first. An empty publisherID lists all sources.
func (r *CrawlLogRepo) ListCrawlLog(publisherID string, limit int) ([]CrawlLogEntry, error) {
	query := `SELECT id, publisher_id, source_url, status, content_hash,
		posts_found, posts_new, posts_updated, posts_removed, error, duration_ms, crawled_at
		FROM crawl_log`
	var args []any

	if publisherID != "" {
		query += ` WHERE publisher_id = ?`
		args = append(args, publisherID)
	}

	query += ` ORDER BY crawled_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl log: %w", err)
	}
	defer rows.Close()

	var entries []CrawlLogEntry
	for rows.Next() {
		var e CrawlLogEntry
		var status string

		err := rows.Scan(&e.ID, &e.PublisherID, &e.SourceURL, &status, &e.ContentHash,
			&e.PostsFound, &e.PostsNew, &e.PostsUpdated, &e.PostsRemoved, &e.Error, &e.DurationMs, &e.CrawledAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl log row: %w", err)
		}

		e.Status = CrawlStatus(status)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crawl log rows: %w", err)
	}

	return entries, nil
}

func (r *CrawlLogRepo) GetCrawlStatusCounts() (map[CrawlStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM crawl_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count crawl statuses: %w", err)
	}
	defer rows.Close()

	counts := map[CrawlStatus]int{
		CrawlStatusSuccess:   0,
		CrawlStatusUnchanged: 0,
		CrawlStatusFailed:    0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan crawl status row: %w", err)
		}
		counts[CrawlStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crawl status rows: %w", err)
	}

	return counts, nil
}
