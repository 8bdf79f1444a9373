package feed

import (
	"strings"

	"github.com/lysyi3m/hongbao-comb/app/catalog"
)

// Filterer decides whether an extracted item is a relevant campaign.
type Filterer struct {
	core     []string
	ai       []string
	catchAll map[string]bool
}

func NewFilterer(keywords catalog.Keywords) *Filterer {
	f := &Filterer{
		core:     normalizeKeywords(keywords.Core),
		ai:       normalizeKeywords(keywords.AI),
		catchAll: make(map[string]bool, len(keywords.CatchAllTags)),
	}
	for _, tag := range keywords.CatchAllTags {
		f.catchAll[tag] = true
	}
	return f
}

func (f *Filterer) ShouldInclude(title, description string, src catalog.Source) bool {
	text := Compare(title + " " + description)

	if !containsAny(text, f.core) {
		return false
	}

	hasHint := containsAny(text, normalizeKeywords(src.Hints))
	hasAI := containsAny(text, f.ai)

	if src.RequireAI {
		return hasAI && (hasHint || f.catchAll[src.Tag])
	}
	return hasHint || hasAI
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = Compare(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if containsKeyword(text, k) {
			return true
		}
	}
	return false
}

// containsKeyword matches latin keywords on word boundaries so that "ai"
// does not fire inside "said"; CJK keywords match anywhere.
func containsKeyword(text, keyword string) bool {
	if !isLatin(keyword) {
		return strings.Contains(text, keyword)
	}

	for offset := 0; ; {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		if (start == 0 || !isLatinWordByte(text[start-1])) && (end == len(text) || !isLatinWordByte(text[end])) {
			return true
		}
		offset = start + 1
	}
}

func isLatin(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isLatinWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
