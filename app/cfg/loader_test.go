package cfg

import (
	"reflect"
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.DBPath != "./data/soup.db" {
		t.Errorf("Expected default DB path, got '%s'", cfg.DBPath)
	}
	if cfg.SourcesDir != "./sources" {
		t.Errorf("Expected default sources dir, got '%s'", cfg.SourcesDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.Schedule != "@every 30m" {
		t.Errorf("Expected schedule '@every 30m', got '%s'", cfg.Schedule)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("Expected batch size 50, got %d", cfg.BatchSize)
	}
	if cfg.LimitPerFeed != 20 {
		t.Errorf("Expected limit per feed 20, got %d", cfg.LimitPerFeed)
	}
	if cfg.TranscriptBatch != 25 {
		t.Errorf("Expected transcript batch 25, got %d", cfg.TranscriptBatch)
	}
	if cfg.APIAccessKey != "" {
		t.Errorf("Expected no API key, got '%s'", cfg.APIAccessKey)
	}
	expectedDomains := []string{"youtube.com", "substack.com", "medium.com", "me3.app", "localhost"}
	if !reflect.DeepEqual(cfg.PlatformDomains, expectedDomains) {
		t.Errorf("Expected default platform domains %v, got %v", expectedDomains, cfg.PlatformDomains)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgs_Overrides(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--db-path", "/tmp/soup.db",
		"--api-key", "secret",
		"--server-url", " http://localhost:8080/ ",
		"--batch-size", "10",
		"--platform-domain", " Substack.com ",
		"--platform-domain", "medium.com",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.DBPath != "/tmp/soup.db" {
		t.Errorf("Expected DB path '/tmp/soup.db', got '%s'", cfg.DBPath)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key 'secret', got '%s'", cfg.APIAccessKey)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("Expected batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("Expected trimmed server URL, got '%s'", cfg.ServerURL)
	}
	if !reflect.DeepEqual(cfg.PlatformDomains, []string{"substack.com", "medium.com"}) {
		t.Errorf("Expected normalized platform domains, got %v", cfg.PlatformDomains)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadArgs_Invalid(t *testing.T) {
	if _, err := LoadArgs([]string{"--batch-size", "0"}); err == nil {
		t.Error("Expected error for zero batch size")
	}
	if _, err := LoadArgs([]string{"--limit-per-feed", "-1"}); err == nil {
		t.Error("Expected error for negative limit per feed")
	}
}
