package feed

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

var entityArtifact = regexp.MustCompile(`&(#[0-9]+|#x[0-9a-f]+|[a-z][a-z0-9]*);`)

// Trailing phrases search engines append to otherwise identical headlines.
var titleBoilerplate = []string{"live updates", "live update", "latest news", "trending", "news", "最新消息", "快讯"}

const maxNormalizeRounds = 8

// Display produces human-facing text: entities unescaped, tags removed,
// whitespace collapsed.
func Display(s string) string {
	return fixpoint(s, func(s string) string {
		s = html.UnescapeString(s)
		s = stripPolicy.Sanitize(s)
		s = html.UnescapeString(s)
		return collapseSpace(s)
	})
}

// Compare produces a key for equality checks only, never for display.
func Compare(s string) string {
	return fixpoint(s, func(s string) string {
		s = cases.Fold().String(s)
		s = norm.NFKC.String(s)
		s = entityArtifact.ReplaceAllString(s, " ")
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
				return r
			}
			return ' '
		}, s)
		return collapseSpace(s)
	})
}

// CompareTitle is Compare with generic trailing boilerplate removed.
func CompareTitle(s string) string {
	s = Compare(s)
	for {
		trimmed := trimBoilerplate(s)
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func trimBoilerplate(s string) string {
	for _, phrase := range titleBoilerplate {
		if s == phrase {
			return ""
		}
		if !strings.HasSuffix(s, phrase) {
			continue
		}
		rest := strings.TrimSuffix(s, phrase)
		// latin phrases must stand as separate words
		if phrase[0] < utf8.RuneSelf && !strings.HasSuffix(rest, " ") {
			continue
		}
		return strings.TrimSpace(rest)
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fixpoint(s string, step func(string) string) string {
	for i := 0; i < maxNormalizeRounds; i++ {
		next := step(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}
