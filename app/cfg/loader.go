package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/rss-soup/app/trust"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/soup.db" description:"Path to the SQLite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing per-consumer source tables"`

	// Server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	ServerURL    string `long:"server-url" env:"SOUP_SERVER_URL" description:"Base URL of a running soup server; the MCP tools forward index requests to it"`

	// Indexing
	UserAgent       string   `long:"user-agent" env:"USER_AGENT" default:"RSS Soup/1.0" description:"User agent string for HTTP requests"`
	Schedule        string   `long:"schedule" env:"SCHEDULE" default:"@every 30m" description:"Cron expression for scheduled indexing passes"`
	BatchSize       int      `long:"batch-size" env:"BATCH_SIZE" default:"50" description:"Publishers crawled per scheduled pass"`
	LimitPerFeed    int      `long:"limit-per-feed" env:"LIMIT_PER_FEED" default:"20" description:"Items kept per feed document"`
	TranscriptBatch int      `long:"transcript-batch" env:"TRANSCRIPT_BATCH" default:"25" description:"Videos checked for transcripts per pass"`
	PlatformDomains []string `long:"platform-domain" env:"PLATFORM_DOMAINS" env-delim:"," description:"Hosting platform domains that do not count as custom domains (default: youtube.com, substack.com, medium.com, me3.app, localhost)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of the process arguments when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", raw.BatchSize)
	}
	if raw.LimitPerFeed <= 0 {
		return nil, fmt.Errorf("limit per feed must be positive, got %d", raw.LimitPerFeed)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		SourcesDir:      raw.SourcesDir,
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		ServerURL:       strings.TrimRight(strings.TrimSpace(raw.ServerURL), "/"),
		UserAgent:       raw.UserAgent,
		Schedule:        raw.Schedule,
		BatchSize:       raw.BatchSize,
		LimitPerFeed:    raw.LimitPerFeed,
		TranscriptBatch: raw.TranscriptBatch,
		PlatformDomains: normalizeDomains(raw.PlatformDomains),
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func normalizeDomains(domains []string) []string {
	if len(domains) == 0 {
		domains = trust.DefaultPlatformDomains
	}

	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}
	return normalized
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
