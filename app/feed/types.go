package feed

import (
	"time"
)

// Event is one promotional campaign announcement extracted from a feed item.
// It is never mutated after Parser.Run creates it.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Platform    string     `json:"platform"`
	Tag         string     `json:"tag"`
	Summary     string     `json:"summary"`
	SourceName  string     `json:"sourceName"`
	SourceURL   string     `json:"sourceUrl"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// PublishedUnix returns the publish time in milliseconds, 0 when undated.
func (e Event) PublishedUnix() int64 {
	if e.PublishedAt == nil {
		return 0
	}
	return e.PublishedAt.UnixMilli()
}

const (
	untitled  = "未命名活动"
	noSummary = "暂无摘要"
)

// raw item fields as scraped, before normalization
type rawItem struct {
	Title       string
	Link        string
	Published   string
	Description string
}
