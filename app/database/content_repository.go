package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var _ ContentRepository = (*ContentRepo)(nil)

const contentColumns = `c.id, c.publisher_id, c.slug, c.title, c.excerpt, c.content_type, c.content_url, c.file_path,
	c.media_url, c.media_duration, c.media_thumbnail, c.published_at, c.topics,
	c.transcript_text, c.transcript_language, c.transcript_checked_at, c.indexed_at, c.updated_at`

// ContentRepo handles database operations for content items
type ContentRepo struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

func scanContent(row rowScanner, extra ...any) (*ContentItem, error) {
	var item ContentItem
	var duration sql.NullInt64
	var topics string

	dest := []any{
		&item.ID, &item.PublisherID, &item.Slug, &item.Title, &item.Excerpt, &item.ContentType, &item.ContentURL, &item.FilePath,
		&item.MediaURL, &duration, &item.MediaThumbnail, &item.PublishedAt, &topics,
		&item.TranscriptText, &item.TranscriptLanguage, &item.TranscriptCheckedAt, &item.IndexedAt, &item.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if duration.Valid {
		item.MediaDuration = int(duration.Int64)
	}

	if topics != "" {
		if err := json.Unmarshal([]byte(topics), &item.Topics); err != nil {
			return nil, fmt.Errorf("failed to decode topics: %w", err)
		}
	}

	return &item, nil
}

func (r *ContentRepo) GetContentBySlug(publisherID, slug string) (*ContentItem, error) {
	row := r.db.QueryRow(`SELECT `+contentColumns+` FROM content_items c
		WHERE c.publisher_id = ? AND c.slug = ?`, publisherID, slug)

	item, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

func (r *ContentRepo) GetContentCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get content count: %w", err)
	}
	return count, nil
}

// GetContentStats returns the stored item count and the newest publish date for a publisher.
func (r *ContentRepo) GetContentStats(publisherID string) (int, *time.Time, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items WHERE publisher_id = ?`, publisherID).Scan(&count); err != nil {
		return 0, nil, fmt.Errorf("failed to count publisher content: %w", err)
	}

	var latest *time.Time
	err := r.db.QueryRow(`
		SELECT published_at FROM content_items
		WHERE publisher_id = ? AND published_at IS NOT NULL
		ORDER BY published_at DESC
		LIMIT 1
	`, publisherID).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return 0, nil, fmt.Errorf("failed to get latest publish date: %w", err)
	}

	return count, latest, nil
}

func (r *ContentRepo) InsertContent(item *ContentItem) error {
	now := time.Now().UTC()

	topics, err := json.Marshal(nonNilStrings(item.Topics))
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.IndexedAt.IsZero() {
		item.IndexedAt = now
	}
	item.UpdatedAt = now

	_, err = r.db.Exec(`
		INSERT INTO content_items (
			id, publisher_id, slug, title, excerpt, content_type, content_url, file_path,
			media_url, media_duration, media_thumbnail, published_at, topics, indexed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.PublisherID, item.Slug, item.Title, item.Excerpt, item.ContentType, item.ContentURL, item.FilePath,
		item.MediaURL, durationValue(item.MediaDuration), item.MediaThumbnail, utcPtr(item.PublishedAt), string(topics),
		item.IndexedAt.UTC(), now)

	if err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}
	return nil
}

// UpdateContent rewrites the mutable fields of an item identified by publisher and slug.
// Transcript fields are owned by UpdateTranscript and are not touched here.
func (r *ContentRepo) UpdateContent(item *ContentItem) error {
	now := time.Now().UTC()

	topics, err := json.Marshal(nonNilStrings(item.Topics))
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	if item.IndexedAt.IsZero() {
		item.IndexedAt = now
	}
	item.UpdatedAt = now

	_, err = r.db.Exec(`
		UPDATE content_items SET
			title = ?, excerpt = ?, content_type = ?, content_url = ?, file_path = ?,
			media_url = ?, media_duration = ?, media_thumbnail = ?, published_at = ?, topics = ?,
			indexed_at = ?, updated_at = ?
		WHERE publisher_id = ? AND slug = ?
	`, item.Title, item.Excerpt, item.ContentType, item.ContentURL, item.FilePath,
		item.MediaURL, durationValue(item.MediaDuration), item.MediaThumbnail, utcPtr(item.PublishedAt), string(topics),
		item.IndexedAt.UTC(), now, item.PublisherID, item.Slug)

	if err != nil {
		return fmt.Errorf("failed to update content item: %w", err)
	}
	return nil
}

func (r *ContentRepo) DeleteContentBySlug(publisherID, slug string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM content_items WHERE publisher_id = ? AND slug = ?`, publisherID, slug)
	if err != nil {
		return false, fmt.Errorf("failed to delete content item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// ListCandidates returns items from enabled publishers, newest first. Undated
// items sort last and always pass the Since filter.
func (r *ContentRepo) ListCandidates(filter CandidateFilter) ([]Candidate, error) {
	var where []string
	var args []any

	where = append(where, "p.enabled = 1")

	if filter.Consumer != "" {
		where = append(where, `p.id IN (
			SELECT s.publisher_id FROM subscriptions s
			WHERE s.consumer = ? AND s.unsubscribed_at IS NULL
		)`)
		args = append(args, filter.Consumer)
	}

	if filter.Since != nil {
		where = append(where, "(c.published_at IS NULL OR c.published_at >= ?)")
		args = append(args, filter.Since.UTC())
	}

	return r.queryCandidates(where, args, candidateOrder, filter.Limit, 0)
}

const candidateOrder = `c.published_at IS NULL, c.published_at DESC, c.slug ASC`

// SearchContent pages through items from enabled publishers, newest first.
func (r *ContentRepo) SearchContent(search ContentSearch) ([]Candidate, error) {
	where, args := search.conditions()
	return r.queryCandidates(where, args, candidateOrder, search.Limit, search.Offset)
}

// CountContent counts the items SearchContent would return without paging.
func (r *ContentRepo) CountContent(search ContentSearch) (int, error) {
	where, args := search.conditions()

	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items c
		JOIN publishers p ON p.id = c.publisher_id
		WHERE `+strings.Join(where, " AND "), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

// GetTrending returns items published since the given time by publishers
// trusted above minTrust, most trusted first.
func (r *ContentRepo) GetTrending(since time.Time, minTrust float64, limit int) ([]Candidate, error) {
	where := []string{"p.enabled = 1", "p.trust_score > ?", "c.published_at >= ?"}
	args := []any{minTrust, since.UTC()}

	return r.queryCandidates(where, args, `p.trust_score DESC, c.published_at DESC, c.slug ASC`, limit, 0)
}

func (s ContentSearch) conditions() ([]string, []any) {
	where := []string{"p.enabled = 1"}
	var args []any

	if s.PublisherID != "" {
		where = append(where, "c.publisher_id = ?")
		args = append(args, s.PublisherID)
	}

	if s.Subscriber != "" {
		where = append(where, `c.publisher_id IN (
			SELECT s.publisher_id FROM subscriptions s
			WHERE (s.consumer = ? OR s.subscriber_key = ?) AND s.unsubscribed_at IS NULL
		)`)
		args = append(args, s.Subscriber, s.Subscriber)
	}

	if s.ContentType != "" {
		where = append(where, "c.content_type = ?")
		args = append(args, s.ContentType)
	}

	if s.Topic != "" {
		where = append(where, `c.topics LIKE ? ESCAPE '\'`)
		args = append(args, `%"`+escapeLike(strings.ToLower(s.Topic))+`"%`)
	}

	if s.Query != "" {
		pattern := "%" + escapeLike(s.Query) + "%"
		where = append(where, `(c.title LIKE ? ESCAPE '\' OR c.excerpt LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if s.Since != nil {
		where = append(where, "c.published_at >= ?")
		args = append(args, s.Since.UTC())
	}

	return where, args
}

func (r *ContentRepo) queryCandidates(where []string, args []any, order string, limit, offset int) ([]Candidate, error) {
	query := `SELECT ` + contentColumns + `, p.name, p.handle, p.trust_score
		FROM content_items c
		JOIN publishers p ON p.id = c.publisher_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		item, err := scanContent(rows, &c.PublisherName, &c.PublisherHandle, &c.TrustScore)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		c.Item = *item
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", err)
	}

	return candidates, nil
}

// GetItemsForTranscript returns video items without a transcript whose last
// check is missing or older than checkedBefore.
func (r *ContentRepo) GetItemsForTranscript(limit int, checkedBefore time.Time) ([]ContentItem, error) {
	rows, err := r.db.Query(`SELECT `+contentColumns+` FROM content_items c
		WHERE c.content_type = 'video'
		  AND c.transcript_text = ''
		  AND (c.transcript_checked_at IS NULL OR c.transcript_checked_at < ?)
		ORDER BY c.published_at IS NULL, c.published_at DESC
		LIMIT ?`, checkedBefore.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for transcript: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content rows: %w", err)
	}

	return items, nil
}

func (r *ContentRepo) UpdateTranscript(itemID, text, language string, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE content_items SET
			transcript_text = ?, transcript_language = ?, transcript_checked_at = ?, updated_at = ?
		WHERE id = ?
	`, text, language, checkedAt.UTC(), time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("failed to update transcript: %w", err)
	}
	return nil
}

func durationValue(seconds int) any {
	if seconds <= 0 {
		return nil
	}
	return seconds
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards for patterns declared with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
