package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var embedded []byte

// Load reads the catalog from path, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	data := embedded
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", displayPath(path), err)
	}

	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range c.Entries {
		if c.Entries[i].Kind == "" {
			c.Entries[i].Kind = KindModel
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Sources expands every entry into one Source per engine, in catalog order.
func (c *Catalog) Sources() []Source {
	var sources []Source
	for _, entry := range c.Entries {
		hints := entry.Hints
		if len(hints) == 0 {
			hints = c.queryHints(entry.Query)
		}

		for _, engineName := range c.enginesFor(entry) {
			engine := c.Engines[engineName]
			sources = append(sources, Source{
				Platform:   entry.Platform,
				Tag:        entry.Tag,
				Kind:       entry.Kind,
				Query:      entry.Query,
				URL:        BuildURL(engine.URL, entry.Query),
				Engine:     engineName,
				SourceName: engine.Name,
				Hints:      hints,
				RequireAI:  entry.RequireAI,
			})
		}
	}
	return sources
}

// Platforms lists the distinct platforms of the given kind in catalog order.
func (c *Catalog) Platforms(kind string) []Platform {
	platforms := []Platform{}
	seen := make(map[string]bool)
	for _, entry := range c.Entries {
		if entry.Kind != kind || seen[entry.Tag] {
			continue
		}
		seen[entry.Tag] = true
		platforms = append(platforms, Platform{Tag: entry.Tag, Name: entry.Platform})
	}
	return platforms
}

// BuildURL substitutes the percent-encoded query into an engine template.
// Spaces become %20, matching encodeURIComponent.
func BuildURL(template, query string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return strings.ReplaceAll(template, "{query}", escaped)
}

func (c *Catalog) enginesFor(entry Entry) []string {
	if len(entry.Engines) > 0 {
		return entry.Engines
	}
	return c.KindEngines[entry.Kind]
}

// queryHints falls back to the query words that are not core keywords.
func (c *Catalog) queryHints(query string) []string {
	var hints []string
	for _, word := range strings.Fields(query) {
		if slices.ContainsFunc(c.Keywords.Core, func(k string) bool { return strings.EqualFold(k, word) }) {
			continue
		}
		hints = append(hints, word)
	}
	return hints
}

func (c *Catalog) validate() error {
	if len(c.Keywords.Core) == 0 {
		return fmt.Errorf("core keywords are required")
	}
	if len(c.Keywords.AI) == 0 {
		return fmt.Errorf("ai keywords are required")
	}

	for name, engine := range c.Engines {
		if engine.Name == "" {
			return fmt.Errorf("engine %s: name is required", name)
		}
		if !strings.Contains(engine.URL, "{query}") {
			return fmt.Errorf("engine %s: url must contain {query}", name)
		}
	}

	for i, entry := range c.Entries {
		requiredFields := map[string]string{
			"platform": entry.Platform,
			"tag":      entry.Tag,
			"query":    entry.Query,
		}
		for fieldName, fieldValue := range requiredFields {
			if strings.TrimSpace(fieldValue) == "" {
				return fmt.Errorf("source at index %d: %s is required", i, fieldName)
			}
		}

		if entry.Kind != KindModel && entry.Kind != KindInfo {
			return fmt.Errorf("source at index %d: invalid kind %q", i, entry.Kind)
		}

		engines := c.enginesFor(entry)
		if len(engines) == 0 {
			return fmt.Errorf("source at index %d: no engines for kind %q", i, entry.Kind)
		}
		for _, name := range engines {
			if _, ok := c.Engines[name]; !ok {
				return fmt.Errorf("source at index %d: unknown engine %q", i, name)
			}
		}
	}

	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "(embedded)"
	}
	return path
}
