package analysis

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/lysyi3m/hongbao-comb/app/cfg"
)

const (
	ProtocolOpenAI    = "openai"
	ProtocolAnthropic = "anthropic"
)

// Family describes a model vendor: how to recognize its model names, which
// models to try when the configured ones fail, and whether an outage there
// warrants switching to the secondary provider.
type Family struct {
	Name           string
	Prefixes       []string
	FallbackModels []string
	CrossVendor    bool
}

var genericFamily = Family{Name: "generic"}

var families = []Family{
	{
		Name:           "zhipu",
		Prefixes:       []string{"glm-", "chatglm"},
		FallbackModels: []string{"glm-4-flash", "glm-4-air"},
		CrossVendor:    true,
	},
	{
		Name:           "deepseek",
		Prefixes:       []string{"deepseek-"},
		FallbackModels: []string{"deepseek-chat"},
		CrossVendor:    true,
	},
	{
		Name:           "qwen",
		Prefixes:       []string{"qwen", "qwq-"},
		FallbackModels: []string{"qwen-plus", "qwen-turbo"},
		CrossVendor:    true,
	},
	{
		Name:           "moonshot",
		Prefixes:       []string{"moonshot-", "kimi-"},
		FallbackModels: []string{"moonshot-v1-8k"},
		CrossVendor:    true,
	},
	{
		Name:           "openai",
		Prefixes:       []string{"gpt-", "chatgpt-", "o1", "o3", "o4"},
		FallbackModels: []string{"gpt-4o-mini", "gpt-4.1-mini"},
	},
	{
		Name:           "anthropic",
		Prefixes:       []string{"claude-"},
		FallbackModels: []string{"claude-3-5-haiku-latest"},
	},
}

// LookupFamily resolves a family by name, or by model prefix when name is
// "auto" or empty. Unknown vendors resolve to the generic family.
func LookupFamily(name, model string) Family {
	name = strings.ToLower(strings.TrimSpace(name))

	if name == "" || name == "auto" {
		model = strings.ToLower(model)
		for _, f := range families {
			if slices.ContainsFunc(f.Prefixes, func(p string) bool { return strings.HasPrefix(model, p) }) {
				return f
			}
		}
		return genericFamily
	}

	for _, f := range families {
		if f.Name == name {
			return f
		}
	}
	if name != genericFamily.Name {
		slog.Warn("Unknown model family, using generic", "family", name)
	}
	return genericFamily
}

// Provider is one configured chat-completion endpoint.
type Provider struct {
	Name           string
	Protocol       string
	APIKey         string
	BaseURL        string
	ChatPath       string
	Model          string
	FallbackModels []string
	Retries        int
	Family         Family
}

func NewProvider(name string, c cfg.Provider) Provider {
	protocol := cmp.Or(c.Protocol, ProtocolOpenAI)

	baseURL := c.BaseURL
	if baseURL == "" && protocol == ProtocolOpenAI {
		baseURL = "https://api.deepseek.com/v1"
	}

	return Provider{
		Name:           name,
		Protocol:       protocol,
		APIKey:         c.APIKey,
		BaseURL:        strings.TrimRight(baseURL, "/"),
		ChatPath:       cmp.Or(c.ChatPath, "/chat/completions"),
		Model:          c.Model,
		FallbackModels: c.FallbackModels,
		Retries:        c.Retries,
		Family:         LookupFamily(c.Family, c.Model),
	}
}

func (p Provider) Configured() bool {
	return p.APIKey != ""
}

// Candidates lists the models to try in order without duplicates: the
// configured model, manual fallbacks, then the family's builtin fallbacks.
func (p Provider) Candidates() []string {
	var out []string
	for _, group := range [][]string{{p.Model}, p.FallbackModels, p.Family.FallbackModels} {
		for _, model := range group {
			model = strings.TrimSpace(model)
			if model != "" && !slices.Contains(out, model) {
				out = append(out, model)
			}
		}
	}
	return out
}
