package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server
	Host      string `long:"host" env:"HOST" default:"127.0.0.1" description:"Listen host"`
	Port      string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	PublicDir string `long:"public-dir" env:"PUBLIC_DIR" default:"./public" description:"Directory with the browser UI (served when present)"`
	APIKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"Access key for operator endpoints (/metrics, /api/sources); open when empty"`

	// Aggregation
	CatalogFile    string `long:"catalog" env:"CATALOG_FILE" description:"YAML source catalog overriding the embedded one"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (hongbao-comb)" description:"User agent string for feed requests"`
	FetchTimeoutMs int    `long:"fetch-timeout-ms" env:"FETCH_TIMEOUT_MS" default:"6500" description:"Per-source fetch timeout in milliseconds"`
	CacheTTLMs     int    `long:"cache-ttl-ms" env:"EVENTS_CACHE_TTL_MS" default:"180000" description:"Aggregation cache TTL in milliseconds"`
	WindowDays     int    `long:"window-days" env:"EVENTS_WINDOW_DAYS" default:"7" description:"Only keep events published within this many days"`
	MaxEvents      int    `long:"max-events" env:"EVENTS_MAX" default:"120" description:"Maximum number of events served"`

	// Primary analysis provider
	AIKey            string `long:"ai-api-key" env:"AI_API_KEY" description:"Primary provider API key (analysis is disabled when empty)"`
	AIBaseURL        string `long:"ai-api-base-url" env:"AI_API_BASE_URL" default:"https://api.openai.com/v1" description:"Primary provider base URL"`
	AIChatPath       string `long:"ai-api-chat-path" env:"AI_API_CHAT_PATH" default:"/chat/completions" description:"Primary provider chat completion path"`
	AIModel          string `long:"ai-api-model" env:"AI_API_MODEL" default:"gpt-4o-mini" description:"Primary provider model"`
	AIFallbackModels string `long:"ai-api-fallback-models" env:"AI_API_FALLBACK_MODELS" description:"Comma separated fallback models for the primary provider"`
	AIRetries        int    `long:"ai-api-retries" env:"AI_API_RETRIES" default:"2" description:"Retries per model after the first attempt"`
	AIFamily         string `long:"ai-api-family" env:"AI_API_FAMILY" default:"auto" description:"Vendor family of the primary provider"`

	// Secondary analysis provider
	FallbackKey            string `long:"ai-fallback-api-key" env:"AI_FALLBACK_API_KEY" description:"Secondary provider API key (cross-provider fallback is disabled when empty)"`
	FallbackBaseURL        string `long:"ai-fallback-api-base-url" env:"AI_FALLBACK_API_BASE_URL" description:"Secondary provider base URL"`
	FallbackChatPath       string `long:"ai-fallback-api-chat-path" env:"AI_FALLBACK_API_CHAT_PATH" default:"/chat/completions" description:"Secondary provider chat completion path"`
	FallbackModel          string `long:"ai-fallback-api-model" env:"AI_FALLBACK_API_MODEL" default:"deepseek-chat" description:"Secondary provider model"`
	FallbackFallbackModels string `long:"ai-fallback-api-fallback-models" env:"AI_FALLBACK_API_FALLBACK_MODELS" description:"Comma separated fallback models for the secondary provider"`
	FallbackRetries        int    `long:"ai-fallback-api-retries" env:"AI_FALLBACK_API_RETRIES" default:"2" description:"Retries per model after the first attempt"`
	FallbackFamily         string `long:"ai-fallback-api-family" env:"AI_FALLBACK_API_FAMILY" default:"auto" description:"Vendor family of the secondary provider"`
	FallbackProtocol       string `long:"ai-fallback-api-protocol" env:"AI_FALLBACK_API_PROTOCOL" default:"openai" choice:"openai" choice:"anthropic" description:"Wire protocol of the secondary provider"`

	AITimeoutMs int `long:"ai-timeout-ms" env:"AI_API_TIMEOUT_MS" default:"18000" description:"Per-attempt completion timeout in milliseconds"`

	// Application metadata
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args and the environment. It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := raw.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		Host:         raw.Host,
		Port:         raw.Port,
		PublicDir:    raw.PublicDir,
		APIKey:       raw.APIKey,
		CatalogFile:  raw.CatalogFile,
		UserAgent:    raw.UserAgent,
		FetchTimeout: time.Duration(raw.FetchTimeoutMs) * time.Millisecond,
		CacheTTL:     time.Duration(raw.CacheTTLMs) * time.Millisecond,
		WindowDays:   raw.WindowDays,
		MaxEvents:    raw.MaxEvents,
		Primary: Provider{
			APIKey:         strings.TrimSpace(raw.AIKey),
			BaseURL:        raw.AIBaseURL,
			ChatPath:       raw.AIChatPath,
			Model:          raw.AIModel,
			FallbackModels: SplitList(raw.AIFallbackModels),
			Retries:        raw.AIRetries,
			Family:         raw.AIFamily,
			Protocol:       "openai",
		},
		Secondary: Provider{
			APIKey:         strings.TrimSpace(raw.FallbackKey),
			BaseURL:        raw.FallbackBaseURL,
			ChatPath:       raw.FallbackChatPath,
			Model:          raw.FallbackModel,
			FallbackModels: SplitList(raw.FallbackFallbackModels),
			Retries:        raw.FallbackRetries,
			Family:         raw.FallbackFamily,
			Protocol:       raw.FallbackProtocol,
		},
		AITimeout: time.Duration(raw.AITimeoutMs) * time.Millisecond,
		LogFormat: raw.LogFormat,
		Timezone:  raw.Timezone,
		Debug:     raw.Debug,
		Version:   GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (r *rawCfg) validate() error {
	positive := map[string]int{
		"fetch timeout": r.FetchTimeoutMs,
		"cache ttl":     r.CacheTTLMs,
		"window days":   r.WindowDays,
		"max events":    r.MaxEvents,
		"ai timeout":    r.AITimeoutMs,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	nonNegative := map[string]int{
		"ai retries":          r.AIRetries,
		"ai fallback retries": r.FallbackRetries,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	return nil
}

// SplitList splits a comma separated option, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
