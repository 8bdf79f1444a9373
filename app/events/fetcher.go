package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/feed"
	"github.com/lysyi3m/hongbao-comb/app/metrics"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 5 << 20

type Fetcher struct {
	client    *http.Client
	parser    *feed.Parser
	userAgent string
	timeout   time.Duration
	metrics   *metrics.Metrics
}

func NewFetcher(client *http.Client, parser *feed.Parser, userAgent string, timeout time.Duration, m *metrics.Metrics) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:    client,
		parser:    parser,
		userAgent: userAgent,
		timeout:   timeout,
		metrics:   m,
	}
}

// FetchAll polls every source concurrently. Events and error messages are
// returned in source order; a failing source never aborts its siblings.
func (f *Fetcher) FetchAll(ctx context.Context, sources []catalog.Source) ([]feed.Event, []string) {
	type outcome struct {
		events []feed.Event
		err    error
	}

	outcomes := make([]outcome, len(sources))
	var wg sync.WaitGroup
	wg.Add(len(sources))

	for i, src := range sources {
		go func() {
			defer wg.Done()
			events, err := f.fetch(ctx, src)
			outcomes[i] = outcome{events: events, err: err}
		}()
	}
	wg.Wait()

	var events []feed.Event
	errs := []string{}
	for i, o := range outcomes {
		if o.err != nil {
			slog.Warn("Source fetch failed", "platform", sources[i].Platform, "engine", sources[i].Engine, "error", o.err)
			errs = append(errs, o.err.Error())
			continue
		}
		events = append(events, o.events...)
	}
	return events, errs
}

func (f *Fetcher) fetch(ctx context.Context, src catalog.Source) (events []feed.Event, err error) {
	start := time.Now()
	defer func() {
		f.metrics.ObserveFetch(src.Engine, err == nil, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	fetchErr := &FetchError{Platform: src.Platform, SourceName: src.SourceName, URL: src.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		fetchErr.Err = fmt.Errorf("failed to create request: %w", err)
		return nil, fetchErr
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		fetchErr.Err = err
		return nil, fetchErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr.Status = resp.StatusCode
		return nil, fetchErr
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		fetchErr.Err = fmt.Errorf("failed to decode body: %w", err)
		return nil, fetchErr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		fetchErr.Err = err
		return nil, fetchErr
	}

	events = f.parser.Run(data, src)
	slog.Debug("Source fetched", "platform", src.Platform, "engine", src.Engine, "events", len(events), "duration", time.Since(start))
	return events, nil
}
