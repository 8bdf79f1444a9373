package events

import (
	"slices"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/feed"
)

// Forward slack for upstream clocks running ahead of ours.
const clockSkew = 5 * time.Minute

// Dedup collapses events sharing a tag and comparison title, keeping the
// later publish time (first seen on ties), then sorts newest first.
func Dedup(events []feed.Event) []feed.Event {
	type key struct{ tag, title string }

	index := make(map[key]int, len(events))
	out := make([]feed.Event, 0, len(events))

	for _, event := range events {
		title := feed.CompareTitle(event.Title)
		if title == "" {
			title = feed.Compare(event.Title)
		}
		k := key{tag: event.Tag, title: title}

		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, event)
			continue
		}
		if event.PublishedUnix() > out[i].PublishedUnix() {
			out[i] = event
		}
	}

	sortNewestFirst(out)
	return out
}

// WindowFilter keeps events published within the trailing window ending at
// now, plus a small allowance for clock skew. Undated events are dropped.
func WindowFilter(events []feed.Event, days int, now time.Time) []feed.Event {
	from := now.Add(-time.Duration(days) * 24 * time.Hour)
	to := now.Add(clockSkew)

	out := make([]feed.Event, 0, len(events))
	for _, event := range events {
		if event.PublishedAt == nil {
			continue
		}
		if event.PublishedAt.Before(from) || event.PublishedAt.After(to) {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Group buckets events by tag. Events and groups are ordered newest first.
func Group(events []feed.Event) []PlatformGroup {
	index := map[string]int{}
	var groups []PlatformGroup

	for _, event := range events {
		i, ok := index[event.Tag]
		if !ok {
			i = len(groups)
			index[event.Tag] = i
			groups = append(groups, PlatformGroup{Tag: event.Tag, Platform: event.Platform})
		}
		groups[i].Events = append(groups[i].Events, event)
	}

	for i := range groups {
		g := &groups[i]
		sortNewestFirst(g.Events)
		g.Count = len(g.Events)
		g.LatestAt = g.Events[0].PublishedAt
	}

	slices.SortStableFunc(groups, func(a, b PlatformGroup) int {
		return compareTimes(a.LatestAt, b.LatestAt)
	})
	return groups
}

func sortNewestFirst(events []feed.Event) {
	slices.SortStableFunc(events, func(a, b feed.Event) int {
		return compareTimes(a.PublishedAt, b.PublishedAt)
	})
}

// compareTimes orders descending with nil last.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}
