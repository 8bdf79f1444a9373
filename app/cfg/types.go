package cfg

import "time"

type Cfg struct {
	// HTTP server
	Host      string
	Port      string
	PublicDir string
	APIKey    string

	// Aggregation
	CatalogFile  string
	UserAgent    string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	WindowDays   int
	MaxEvents    int

	// Analysis
	Primary   Provider
	Secondary Provider
	AITimeout time.Duration

	// Application metadata
	LogFormat string
	Timezone  string
	Debug     bool
	Version   string
}

// Provider is one chat-completion vendor as configured by the operator.
type Provider struct {
	APIKey         string
	BaseURL        string
	ChatPath       string
	Model          string
	FallbackModels []string
	Retries        int
	Family         string
	Protocol       string
}
