package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/feed"
	"github.com/lysyi3m/hongbao-comb/app/metrics"
)

type Options struct {
	WindowDays int
	MaxEvents  int
}

type Aggregator struct {
	catalog *catalog.Catalog
	sources []catalog.Source
	fetcher *Fetcher
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAggregator(cat *catalog.Catalog, fetcher *Fetcher, opts Options, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		catalog: cat,
		sources: cat.Sources(),
		fetcher: fetcher,
		opts:    opts,
		metrics: m,
		now:     time.Now,
	}
}

func (a *Aggregator) Sources() []catalog.Source {
	return a.sources
}

// Aggregate runs one full pass over the catalog. Source failures end up in
// Result.Errors; when nothing survives a single fallback event is served.
func (a *Aggregator) Aggregate(ctx context.Context) (*Result, error) {
	start := a.now()

	collected, errs := a.fetcher.FetchAll(ctx, a.sources)
	if err := ctx.Err(); err != nil {
		a.metrics.ObserveRefresh(false, 0, time.Since(start))
		return nil, err
	}

	now := a.now()
	events := WindowFilter(Dedup(collected), a.opts.WindowDays, now)
	if a.opts.MaxEvents > 0 && len(events) > a.opts.MaxEvents {
		events = events[:a.opts.MaxEvents]
	}
	if len(events) == 0 {
		events = FallbackEvents(now)
	}

	result := &Result{
		UpdatedAt:      now.UTC(),
		Total:          len(events),
		Events:         events,
		GroupedEvents:  Group(events),
		Errors:         errs,
		ModelPlatforms: a.catalog.Platforms(catalog.KindModel),
		InfoPlatforms:  a.catalog.Platforms(catalog.KindInfo),
		WindowDays:     a.opts.WindowDays,
	}

	a.metrics.ObserveRefresh(true, result.Total, time.Since(start))
	slog.Info("Aggregation refreshed",
		"sources", len(a.sources),
		"collected", len(collected),
		"events", result.Total,
		"errors", len(errs),
		"duration", time.Since(start))

	return result, nil
}

// FallbackResult is served when the aggregation itself failed.
func (a *Aggregator) FallbackResult(cause string) *Result {
	now := a.now()
	events := FallbackEvents(now)
	return &Result{
		UpdatedAt:      now.UTC(),
		Total:          len(events),
		Events:         events,
		GroupedEvents:  Group(events),
		Errors:         []string{cause},
		ModelPlatforms: a.catalog.Platforms(catalog.KindModel),
		InfoPlatforms:  a.catalog.Platforms(catalog.KindInfo),
		WindowDays:     a.opts.WindowDays,
	}
}

func FallbackEvents(now time.Time) []feed.Event {
	published := now.UTC()
	return []feed.Event{{
		ID:          "fallback-1",
		Title:       "请连接网络后刷新，获取最新红包活动",
		Platform:    "系统提示",
		Tag:         "system",
		Summary:     "当前为离线降级数据。联网后可自动拉取元宝、混元、千问及更多 AI 平台活动资讯。",
		SourceName:  "Local Fallback",
		SourceURL:   "https://www.bing.com/news",
		PublishedAt: &published,
	}}
}
