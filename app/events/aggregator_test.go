package events

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		switch query {
		case "元宝 红包":
			_, _ = w.Write([]byte(rssDocument(
				rssItem("元宝红包 第一波", now.Add(-3*time.Hour), "https://example.com/y1"),
				rssItem("元宝红包 第一波 - Live Updates", now.Add(-2*time.Hour), "https://example.com/y1b"),
				rssItem("元宝红包 去年", now.Add(-30*24*time.Hour), "https://example.com/old"),
			)))
		case "千问 红包":
			_, _ = w.Write([]byte(rssDocument(
				rssItem("千问现金红包", now.Add(-time.Hour), "https://example.com/q1"),
			)))
		}
	})

	c := testCatalog(t, server.URL)
	aggregator := NewAggregator(c, newTestFetcher(time.Second, c), Options{WindowDays: 7, MaxEvents: 120}, nil)

	result, err := aggregator.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "千问现金红包", result.Events[0].Title)
	assert.Equal(t, "https://example.com/y1b", result.Events[1].SourceURL)

	require.Len(t, result.GroupedEvents, 2)
	assert.Equal(t, "qwen", result.GroupedEvents[0].Tag)
	assert.Equal(t, "yuanbao", result.GroupedEvents[1].Tag)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 7, result.WindowDays)
	assert.Len(t, result.ModelPlatforms, 2)
	assert.Empty(t, result.InfoPlatforms)
	assert.NotNil(t, result.InfoPlatforms)
}

func TestAggregateCapsEvents(t *testing.T) {
	now := time.Now()
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		if query != "元宝 红包" {
			return
		}
		_, _ = w.Write([]byte(rssDocument(
			rssItem("元宝红包 1", now.Add(-1*time.Hour), "https://example.com/1"),
			rssItem("元宝红包 2", now.Add(-2*time.Hour), "https://example.com/2"),
			rssItem("元宝红包 3", now.Add(-3*time.Hour), "https://example.com/3"),
		)))
	})

	c := testCatalog(t, server.URL)
	aggregator := NewAggregator(c, newTestFetcher(time.Second, c), Options{WindowDays: 7, MaxEvents: 2}, nil)

	result, err := aggregator.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Events, 2)
	assert.Equal(t, "元宝红包 1", result.Events[0].Title)
	assert.Equal(t, "元宝红包 2", result.Events[1].Title)
	require.Len(t, result.GroupedEvents, 1)
	assert.Equal(t, 2, result.GroupedEvents[0].Count)
}

func TestAggregateKeepsSameTitleAcrossTags(t *testing.T) {
	now := time.Now()
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		_, _ = w.Write([]byte(rssDocument(
			rssItem("元宝红包 1", now.Add(-1*time.Hour), "https://example.com/1"),
		)))
	})

	c := testCatalog(t, server.URL)
	aggregator := NewAggregator(c, newTestFetcher(time.Second, c), Options{WindowDays: 7, MaxEvents: 120}, nil)

	result, err := aggregator.Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	tags := []string{result.Events[0].Tag, result.Events[1].Tag}
	assert.ElementsMatch(t, []string{"yuanbao", "qwen"}, tags)
}

func TestAggregateFallsBackWhenEverythingFails(t *testing.T) {
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := testCatalog(t, server.URL)
	aggregator := NewAggregator(c, newTestFetcher(time.Second, c), Options{WindowDays: 7, MaxEvents: 120}, nil)

	result, err := aggregator.Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "fallback-1", result.Events[0].ID)
	assert.Equal(t, "system", result.Events[0].Tag)
	require.Len(t, result.GroupedEvents, 1)
	assert.Equal(t, "system", result.GroupedEvents[0].Tag)
	assert.Equal(t, []string{"元宝 拉取失败: HTTP 500", "千问 拉取失败: HTTP 500"}, result.Errors)
}

func TestFallbackResult(t *testing.T) {
	c := testCatalog(t, "http://127.0.0.1")
	aggregator := NewAggregator(c, nil, Options{WindowDays: 3}, nil)

	result := aggregator.FallbackResult("boom")

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, []string{"boom"}, result.Errors)
	assert.Equal(t, 3, result.WindowDays)
	assert.NotNil(t, result.Events[0].PublishedAt)
}
