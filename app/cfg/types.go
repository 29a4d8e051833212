package cfg

type Cfg struct {
	// Storage
	DBPath     string
	SourcesDir string

	// Server
	Port         string
	APIAccessKey string
	ServerURL    string

	// Indexing
	UserAgent       string
	Schedule        string
	BatchSize       int
	LimitPerFeed    int
	TranscriptBatch int
	PlatformDomains []string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
