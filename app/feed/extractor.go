package feed

import (
	"iter"
	"regexp"
	"strings"
)

// The extractor scrapes <item> blocks with patterns instead of a conformant
// XML parser: search engine feeds are often malformed and a strict decoder
// would drop items a reader can still make sense of.

var itemPattern = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)

var linkHrefPattern = regexp.MustCompile(`(?is)<link\b[^>]*\bhref\s*=\s*["']([^"']+)["']`)

var fieldAliases = map[string][]string{
	"pubDate":     {"pubDate", "published", "updated"},
	"description": {"description", "summary", "content"},
}

type tagPatterns struct {
	cdata *regexp.Regexp
	plain *regexp.Regexp
}

var patterns = map[string]tagPatterns{}

func init() {
	for _, tag := range []string{"title", "link", "pubDate", "published", "updated", "description", "summary", "content"} {
		patterns[tag] = compileTag(tag)
	}
}

func compileTag(tag string) tagPatterns {
	quoted := regexp.QuoteMeta(tag)
	return tagPatterns{
		cdata: regexp.MustCompile(`(?is)<` + quoted + `\b[^>]*>\s*<!\[CDATA\[(.*?)\]\]>\s*</` + quoted + `>`),
		plain: regexp.MustCompile(`(?is)<` + quoted + `\b[^>]*>(.*?)</` + quoted + `>`),
	}
}

// Items yields the inner text of every <item> block in document order.
func Items(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for {
			loc := itemPattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[2]:loc[3]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Field returns the first non-empty value for name or one of its aliases.
func Field(block, name string) string {
	names := fieldAliases[name]
	if names == nil {
		names = []string{name}
	}

	for _, tag := range names {
		if value := tagContent(block, tag); value != "" {
			return value
		}
	}

	if name == "link" {
		if m := linkHrefPattern.FindStringSubmatch(block); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func tagContent(block, tag string) string {
	p, ok := patterns[tag]
	if !ok {
		p = compileTag(tag)
	}

	if m := p.cdata.FindStringSubmatch(block); m != nil {
		if value := strings.TrimSpace(m[1]); value != "" {
			return value
		}
	}
	if m := p.plain.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(cdataMarkers.Replace(m[1]))
	}
	return ""
}

var cdataMarkers = strings.NewReplacer("<![CDATA[", "", "]]>", "")
