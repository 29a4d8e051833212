package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ StatsRepository = (*StatsRepo)(nil)

// StatsRepo aggregates counts across the content graph
type StatsRepo struct {
	db *DB
}

func NewStatsRepository(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) GetGraphStats() (*GraphStats, error) {
	var stats GraphStats

	counts := []struct {
		query string
		dest  *int
		name  string
	}{
		{`SELECT COUNT(*) FROM publishers WHERE enabled = 1`, &stats.Publishers, "publishers"},
		{`SELECT COUNT(*) FROM content_items`, &stats.Content, "content"},
		{`SELECT COUNT(*) FROM subscriptions WHERE unsubscribed_at IS NULL`, &stats.Subscriptions, "subscriptions"},
		{`SELECT COUNT(DISTINCT t.value) FROM content_items c, json_each(c.topics) t`, &stats.Topics, "topics"},
	}

	for _, c := range counts {
		if err := r.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}

	var lastCrawled *time.Time
	err := r.db.QueryRow(`SELECT crawled_at FROM crawl_log ORDER BY crawled_at DESC LIMIT 1`).Scan(&lastCrawled)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last crawl time: %w", err)
	}
	stats.LastCrawledAt = lastCrawled

	return &stats, nil
}
