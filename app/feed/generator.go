package feed

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// Generator re-publishes aggregated events as an RSS 2.0 document.
type Generator struct {
	title string
	link  string
}

func NewGenerator(title, link string) *Generator {
	return &Generator{title: title, link: link}
}

func (g *Generator) Run(events []Event, updatedAt time.Time) (string, error) {
	out := &feeds.Feed{
		Title:       g.title,
		Link:        &feeds.Link{Href: g.link},
		Description: "AI 红包活动聚合",
		Created:     updatedAt,
		Updated:     updatedAt,
	}

	for _, event := range events {
		item := &feeds.Item{
			Id:          event.ID,
			Title:       fmt.Sprintf("[%s] %s", event.Platform, event.Title),
			Link:        &feeds.Link{Href: event.SourceURL},
			Description: event.Summary,
			Source:      &feeds.Link{Href: event.SourceURL, Rel: event.SourceName},
		}
		if event.PublishedAt != nil {
			item.Created = *event.PublishedAt
		}
		out.Items = append(out.Items, item)
	}

	rss, err := out.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render rss: %w", err)
	}
	return rss, nil
}
