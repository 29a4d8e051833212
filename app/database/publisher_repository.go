package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lysyi3m/rss-soup/app/trust"
)

var _ PublisherRepository = (*PublisherRepo)(nil)

const publisherColumns = `id, site_url, source_kind, source_type, handle, name, bio, location, avatar, banner,
	links, content_types, content_hash, post_count, last_published_at, trust_score, trust_signals,
	verified, verified_at, subscribe_enabled, subscribe_title, subscribe_description, subscribe_frequency,
	enabled, first_seen_at, last_indexed_at, created_at, updated_at`

// PublisherRepo handles database operations for publishers
type PublisherRepo struct {
	db *DB
}

func NewPublisherRepository(db *DB) *PublisherRepo {
	return &PublisherRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublisher(row rowScanner) (*Publisher, error) {
	var p Publisher
	var sourceKind, contentTypes, signals string

	err := row.Scan(
		&p.ID, &p.SiteURL, &sourceKind, &p.SourceType, &p.Handle, &p.Name, &p.Bio, &p.Location, &p.Avatar, &p.Banner,
		&p.Links, &contentTypes, &p.ContentHash, &p.PostCount, &p.LastPublishedAt, &p.TrustScore, &signals,
		&p.Verified, &p.VerifiedAt, &p.Subscribe.Enabled, &p.Subscribe.Title, &p.Subscribe.Description, &p.Subscribe.Frequency,
		&p.Enabled, &p.FirstSeenAt, &p.LastIndexedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SourceKind = SourceKind(sourceKind)

	if contentTypes != "" {
		if err := json.Unmarshal([]byte(contentTypes), &p.ContentTypes); err != nil {
			return nil, fmt.Errorf("failed to decode content types: %w", err)
		}
	}
	if signals != "" {
		if err := json.Unmarshal([]byte(signals), &p.TrustSignals); err != nil {
			return nil, fmt.Errorf("failed to decode trust signals: %w", err)
		}
	}

	return &p, nil
}

func (r *PublisherRepo) getOne(where string, arg any) (*Publisher, error) {
	row := r.db.QueryRow(`SELECT `+publisherColumns+` FROM publishers WHERE `+where, arg)

	p, err := scanPublisher(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PublisherRepo) GetPublisher(id string) (*Publisher, error) {
	p, err := r.getOne(`id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher: %w", err)
	}
	return p, nil
}

func (r *PublisherRepo) GetPublisherBySiteURL(siteURL string) (*Publisher, error) {
	p, err := r.getOne(`site_url = ?`, siteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher by site URL: %w", err)
	}
	return p, nil
}

func (r *PublisherRepo) GetPublisherByHandle(handle string) (*Publisher, error) {
	p, err := r.getOne(`handle = ? ORDER BY created_at LIMIT 1`, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher by handle: %w", err)
	}
	return p, nil
}

// GetPublisherByName matches the display name case-insensitively and prefers
// the most trusted publisher when several share it.
func (r *PublisherRepo) GetPublisherByName(name string) (*Publisher, error) {
	p, err := r.getOne(`lower(name) = lower(?) ORDER BY trust_score DESC, created_at LIMIT 1`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher by name: %w", err)
	}
	return p, nil
}

func (r *PublisherRepo) GetPublisherCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM publishers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get publisher count: %w", err)
	}
	return count, nil
}

func (r *PublisherRepo) ListPublishers(limit, offset int) ([]Publisher, error) {
	return r.list(`SELECT `+publisherColumns+` FROM publishers
		ORDER BY trust_score DESC, name ASC
		LIMIT ? OFFSET ?`, limit, offset)
}

// GetPublishersDueForIndex returns enabled publishers, never-indexed first, then
// by oldest last_indexed_at.
func (r *PublisherRepo) GetPublishersDueForIndex(limit int) ([]Publisher, error) {
	return r.list(`SELECT `+publisherColumns+` FROM publishers
		WHERE enabled = 1
		ORDER BY last_indexed_at ASC, created_at ASC
		LIMIT ?`, limit)
}

// SearchPublishers lists enabled publishers matching a handle or name
// substring and, when set, publishing on a topic.
func (r *PublisherRepo) SearchPublishers(search PublisherSearch) ([]Publisher, error) {
	where := []string{"enabled = 1"}
	var args []any

	if search.Query != "" {
		pattern := "%" + escapeLike(search.Query) + "%"
		where = append(where, `(handle LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if search.Topic != "" {
		where = append(where, `id IN (
			SELECT publisher_id FROM content_items WHERE topics LIKE ? ESCAPE '\'
		)`)
		args = append(args, `%"`+escapeLike(strings.ToLower(search.Topic))+`"%`)
	}

	var order string
	switch search.OrderBy {
	case PublisherOrderRecent:
		order = "last_published_at IS NULL, last_published_at DESC, trust_score DESC"
	case PublisherOrderPosts:
		order = "post_count DESC, trust_score DESC"
	default:
		order = "trust_score DESC, post_count DESC"
	}

	query := `SELECT ` + publisherColumns + ` FROM publishers
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order + `, handle ASC`

	if search.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, search.Limit, max(search.Offset, 0))
	}

	return r.list(query, args...)
}

func (r *PublisherRepo) list(query string, args ...any) ([]Publisher, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}
	defer rows.Close()

	var publishers []Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publisher row: %w", err)
		}
		publishers = append(publishers, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publisher rows: %w", err)
	}

	return publishers, nil
}

// UpsertPublisher inserts a publisher keyed by site URL or refreshes its
// identity fields. first_seen_at, enabled and the aggregates are left alone on
// update. Returns the stored publisher ID.
func (r *PublisherRepo) UpsertPublisher(p *Publisher) (string, error) {
	now := time.Now().UTC()

	contentTypes, err := json.Marshal(nonNilStrings(p.ContentTypes))
	if err != nil {
		return "", fmt.Errorf("failed to encode content types: %w", err)
	}

	links := p.Links
	if links == "" {
		links = "{}"
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	firstSeen := p.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = now
	}

	sourceKind := p.SourceKind
	if sourceKind == "" {
		sourceKind = SourceKindProfile
	}

	var storedID string
	err = r.db.QueryRow(`
		INSERT INTO publishers (
			id, site_url, source_kind, source_type, handle, name, bio, location, avatar, banner,
			links, content_types, content_hash, verified, verified_at,
			subscribe_enabled, subscribe_title, subscribe_description, subscribe_frequency,
			enabled, first_seen_at, last_indexed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(site_url) DO UPDATE SET
			source_kind = excluded.source_kind,
			source_type = excluded.source_type,
			handle = excluded.handle,
			name = excluded.name,
			bio = excluded.bio,
			location = excluded.location,
			avatar = excluded.avatar,
			banner = excluded.banner,
			links = excluded.links,
			content_types = excluded.content_types,
			content_hash = excluded.content_hash,
			verified = excluded.verified,
			verified_at = excluded.verified_at,
			subscribe_enabled = excluded.subscribe_enabled,
			subscribe_title = excluded.subscribe_title,
			subscribe_description = excluded.subscribe_description,
			subscribe_frequency = excluded.subscribe_frequency,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`, id, p.SiteURL, string(sourceKind), p.SourceType, p.Handle, p.Name, p.Bio, p.Location, p.Avatar, p.Banner,
		links, string(contentTypes), p.ContentHash, p.Verified, utcPtr(p.VerifiedAt),
		p.Subscribe.Enabled, p.Subscribe.Title, p.Subscribe.Description, p.Subscribe.Frequency,
		firstSeen.UTC(), utcPtr(p.LastIndexedAt), now, now,
	).Scan(&storedID)

	if err != nil {
		return "", fmt.Errorf("failed to upsert publisher: %w", err)
	}

	return storedID, nil
}

// UpdateContentHash records the fingerprint of a fully synced source
// document. It is written only after every item was stored.
func (r *PublisherRepo) UpdateContentHash(publisherID, hash string) error {
	_, err := r.db.Exec(`
		UPDATE publishers SET content_hash = ?, updated_at = ? WHERE id = ?
	`, hash, time.Now().UTC(), publisherID)
	if err != nil {
		return fmt.Errorf("failed to update content hash: %w", err)
	}
	return nil
}

func (r *PublisherRepo) TouchIndexed(publisherID string, indexedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE publishers SET last_indexed_at = ?, updated_at = ? WHERE id = ?
	`, indexedAt.UTC(), time.Now().UTC(), publisherID)
	if err != nil {
		return fmt.Errorf("failed to update last indexed time: %w", err)
	}
	return nil
}

func (r *PublisherRepo) UpdateAggregates(publisherID string, postCount int, lastPublishedAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE publishers SET post_count = ?, last_published_at = ?, updated_at = ? WHERE id = ?
	`, postCount, utcPtr(lastPublishedAt), time.Now().UTC(), publisherID)
	if err != nil {
		return fmt.Errorf("failed to update publisher aggregates: %w", err)
	}
	return nil
}

func (r *PublisherRepo) UpdateTrust(publisherID string, score float64, signals trust.Signals) error {
	encoded, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("failed to encode trust signals: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE publishers SET trust_score = ?, trust_signals = ?, updated_at = ? WHERE id = ?
	`, score, string(encoded), time.Now().UTC(), publisherID)
	if err != nil {
		return fmt.Errorf("failed to update publisher trust: %w", err)
	}
	return nil
}

func (r *PublisherRepo) SetEnabled(publisherID string, enabled bool) error {
	_, err := r.db.Exec(`
		UPDATE publishers SET enabled = ?, updated_at = ? WHERE id = ?
	`, enabled, time.Now().UTC(), publisherID)
	if err != nil {
		return fmt.Errorf("failed to set publisher enabled status: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
