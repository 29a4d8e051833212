package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
)

type mockContentRepository struct {
	database.ContentRepository
	items         []database.ContentItem
	checkedBefore time.Time
	updates       map[string]Transcript
	checkedAt     map[string]time.Time
}

func (m *mockContentRepository) GetItemsForTranscript(limit int, checkedBefore time.Time) ([]database.ContentItem, error) {
	m.checkedBefore = checkedBefore
	if len(m.items) > limit {
		return m.items[:limit], nil
	}
	return m.items, nil
}

func (m *mockContentRepository) UpdateTranscript(itemID, text, language string, checkedAt time.Time) error {
	if m.updates == nil {
		m.updates = make(map[string]Transcript)
		m.checkedAt = make(map[string]time.Time)
	}
	m.updates[itemID] = Transcript{Language: language, Text: text}
	m.checkedAt[itemID] = checkedAt
	return nil
}

type mockFetcher struct {
	transcripts map[string]*Transcript
	requested   []string
}

func (m *mockFetcher) Fetch(ctx context.Context, videoID string) *Transcript {
	m.requested = append(m.requested, videoID)
	return m.transcripts[videoID]
}

func TestEnricherRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	repo := &mockContentRepository{
		items: []database.ContentItem{
			{ID: "1", ContentType: "video", MediaURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			{ID: "2", ContentType: "video", MediaURL: "https://youtu.be/aaaaaaaaaaa"},
			{ID: "3", ContentType: "video", ContentURL: "https://vimeo.com/12345"},
		},
	}
	fetcher := &mockFetcher{
		transcripts: map[string]*Transcript{
			"dQw4w9WgXcQ": {Language: "en", Text: "never gonna give you up"},
		},
	}

	enricher := NewEnricher(repo, fetcher, func() time.Time { return now })
	result, err := enricher.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Checked != 3 || result.Found != 1 {
		t.Errorf("Expected 3 checked and 1 found, got %+v", result)
	}
	if !repo.checkedBefore.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Expected 24h recheck cutoff, got %v", repo.checkedBefore)
	}
	if len(fetcher.requested) != 2 {
		t.Errorf("Expected lookups only for recognizable videos, got %v", fetcher.requested)
	}

	if got := repo.updates["1"]; got.Text != "never gonna give you up" || got.Language != "en" {
		t.Errorf("Expected stored transcript, got %+v", got)
	}
	if got := repo.updates["3"]; got.Text != "" {
		t.Errorf("Expected empty transcript for unrecognized video, got %+v", got)
	}
	if !repo.checkedAt["2"].Equal(now) {
		t.Errorf("Expected check time to be recorded for missing transcript")
	}
}

func TestEnricherRun_Cancelled(t *testing.T) {
	repo := &mockContentRepository{
		items: []database.ContentItem{{ID: "1", MediaURL: "dQw4w9WgXcQ"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewEnricher(repo, &mockFetcher{}, nil).Run(ctx, 10)
	if err == nil {
		t.Error("Expected cancellation error")
	}
	if result.Checked != 0 {
		t.Errorf("Expected nothing checked, got %d", result.Checked)
	}
}
