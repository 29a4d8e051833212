package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SourceCache holds the source tables for every consumer, one YAML file per
// consumer in sourcesDir.
type SourceCache struct {
	sourcesDir string
	cache      map[string]*SourceSet
	mu         sync.RWMutex
}

func NewSourceCache(sourcesDir string) *SourceCache {
	return &SourceCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*SourceSet),
	}
}

func (sc *SourceCache) Run() error {
	if _, err := os.Stat(sc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		consumer := strings.TrimSuffix(fileName, ".yml")

		set, err := sc.LoadSourceSet(consumer)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source set loaded", "consumer", consumer, "sources", len(set.Sources))
	}

	return nil
}

func (sc *SourceCache) LoadSourceSet(consumer string) (*SourceSet, error) {
	setFile := filepath.Join(sc.sourcesDir, consumer+".yml")
	set, err := sc.parseSourceSet(setFile)
	if err != nil {
		return nil, err
	}

	set.Consumer = consumer

	if err := sc.validateSourceSet(set); err != nil {
		return nil, fmt.Errorf("invalid source set %s: %w", setFile, err)
	}

	sc.Put(set)

	return set, nil
}

// Put registers a source set directly, replacing any set for the same consumer.
func (sc *SourceCache) Put(set *SourceSet) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache[set.Consumer] = set
}

// GetSources returns the descriptors for consumer, or nil if none are configured.
func (sc *SourceCache) GetSources(consumer string) []SourceDescriptor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	set, ok := sc.cache[consumer]
	if !ok {
		return nil
	}

	sources := make([]SourceDescriptor, len(set.Sources))
	copy(sources, set.Sources)
	return sources
}

// GetLabel returns the display label of a consumer's table, falling back to
// the consumer handle. ok is false when no table is configured.
func (sc *SourceCache) GetLabel(consumer string) (string, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	set, ok := sc.cache[consumer]
	if !ok {
		return "", false
	}
	if set.Label != "" {
		return set.Label, true
	}
	return consumer, true
}

// FindSource looks a feed URL up across every consumer's table.
func (sc *SourceCache) FindSource(feedURL string) (SourceDescriptor, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	for _, set := range sc.cache {
		for _, descriptor := range set.Sources {
			if descriptor.FeedURL == feedURL {
				return descriptor, true
			}
		}
	}
	return SourceDescriptor{}, false
}

func (sc *SourceCache) GetConsumers() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	consumers := make([]string, 0, len(sc.cache))
	for consumer := range sc.cache {
		consumers = append(consumers, consumer)
	}
	sort.Strings(consumers)
	return consumers
}

func (sc *SourceCache) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	count := 0
	for _, set := range sc.cache {
		count += len(set.Sources)
	}
	return count
}

func (sc *SourceCache) parseSourceSet(setFile string) (*SourceSet, error) {
	data, err := os.ReadFile(setFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var set SourceSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range set.Sources {
		set.Sources[i].FeedURL = strings.TrimSpace(set.Sources[i].FeedURL)
		if set.Sources[i].Type == "" {
			set.Sources[i].Type = SourceTypeArticle
		}
	}

	return &set, nil
}

func (sc *SourceCache) validateSourceSet(set *SourceSet) error {
	if set == nil {
		return fmt.Errorf("source set is nil")
	}
	if set.Consumer == "" {
		return fmt.Errorf("consumer is required")
	}

	validFields := map[string]bool{
		"title":       true,
		"description": true,
		"link":        true,
	}

	seen := make(map[string]bool, len(set.Sources))
	for i, descriptor := range set.Sources {
		if descriptor.FeedURL == "" {
			return fmt.Errorf("feed URL is required at index %d", i)
		}
		parsed, err := url.Parse(descriptor.FeedURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("invalid feed URL at index %d: %s", i, descriptor.FeedURL)
		}
		if seen[descriptor.FeedURL] {
			return fmt.Errorf("duplicate feed URL at index %d: %s", i, descriptor.FeedURL)
		}
		seen[descriptor.FeedURL] = true

		if !descriptor.Type.Valid() {
			return fmt.Errorf("invalid source type at index %d: %s", i, descriptor.Type)
		}
		if descriptor.Confidence < 0 || descriptor.Confidence > 1 {
			return fmt.Errorf("confidence at index %d must be between 0 and 1", i)
		}

		for j, filter := range descriptor.Filters {
			if !validFields[filter.Field] {
				return fmt.Errorf("invalid filter field at source %d, filter %d: %s", i, j, filter.Field)
			}
			if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
				return fmt.Errorf("filter %d at source %d must have at least one include or exclude rule", j, i)
			}
		}
	}

	return nil
}
