package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// EnsureSubscription creates the subscription or reactivates a cancelled one.
func (r *SubscriptionRepo) EnsureSubscription(s *Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubscribedAt.IsZero() {
		s.SubscribedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO subscriptions (id, subscriber_key, consumer, publisher_id, source, subscribed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subscriber_key, publisher_id) DO UPDATE SET
			consumer = excluded.consumer,
			source = excluded.source,
			unsubscribed_at = NULL
	`, s.ID, s.SubscriberKey, s.Consumer, s.PublisherID, s.Source, s.SubscribedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to ensure subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) CountActiveSubscribers(publisherID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(DISTINCT subscriber_key) FROM subscriptions
		WHERE publisher_id = ? AND unsubscribed_at IS NULL
	`, publisherID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}

func (r *SubscriptionRepo) ListConsumerPublisherIDs(consumer string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT publisher_id FROM subscriptions
		WHERE consumer = ? AND unsubscribed_at IS NULL
		ORDER BY subscribed_at ASC
	`, consumer)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumer publishers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan publisher ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return ids, nil
}
