package feed

import (
	"cmp"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	filterer *Filterer
}

func NewParser(filterer *Filterer) *Parser {
	return &Parser{filterer: filterer}
}

// Run turns one feed body into the relevant events for src.
func (p *Parser) Run(data []byte, src catalog.Source) []Event {
	text := string(data)

	var raws []rawItem
	for block := range Items(text) {
		raws = append(raws, rawItem{
			Title:       Field(block, "title"),
			Link:        Field(block, "link"),
			Published:   Field(block, "pubDate"),
			Description: Field(block, "description"),
		})
	}
	if len(raws) == 0 {
		raws = p.parseFallback(text, src)
	}

	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		if event, ok := p.normalizeItem(raw, src); ok {
			events = append(events, event)
		}
	}
	return events
}

// parseFallback covers feeds without <item> blocks, typically Atom.
func (p *Parser) parseFallback(text string, src catalog.Source) []rawItem {
	if !strings.Contains(text, "<entry") {
		return nil
	}

	parsed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		slog.Debug("Fallback feed parse failed", "platform", src.Platform, "engine", src.Engine, "error", err)
		return nil
	}

	raws := make([]rawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		raws = append(raws, rawItem{
			Title:       item.Title,
			Link:        item.Link,
			Published:   cmp.Or(item.Published, item.Updated),
			Description: cmp.Or(item.Description, item.Content),
		})
	}
	return raws
}

func (p *Parser) normalizeItem(raw rawItem, src catalog.Source) (Event, bool) {
	title := Display(raw.Title)
	description := Display(raw.Description)
	if !p.filterer.ShouldInclude(title, description, src) {
		return Event{}, false
	}

	link := resolveLink(raw.Link)

	return Event{
		ID:          eventID(src, cmp.Or(link, title)),
		Title:       cmp.Or(title, untitled),
		Platform:    src.Platform,
		Tag:         src.Tag,
		Summary:     cmp.Or(description, noSummary),
		SourceName:  src.SourceName,
		SourceURL:   cmp.Or(link, src.URL),
		PublishedAt: parseTime(raw.Published),
	}, true
}

func eventID(src catalog.Source, key string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(src.Tag+"|"+src.SourceName+"|"+key))
	return src.Tag + "-" + id.String()
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(Display(value))
	if value == "" {
		return nil
	}

	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil || t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// resolveLink unescapes the link and unwraps Bing news click-tracking redirects.
func resolveLink(link string) string {
	link = strings.TrimSpace(html.UnescapeString(link))
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() {
		return link
	}

	if strings.HasSuffix(strings.ToLower(u.Hostname()), "bing.com") && strings.Contains(strings.ToLower(u.Path), "apiclick") {
		if target := u.Query().Get("url"); target != "" {
			if t, err := url.Parse(target); err == nil && t.IsAbs() {
				return target
			}
		}
	}
	return link
}
