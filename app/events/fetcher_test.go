package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestFetchAllToleratesPartialFailure(t *testing.T) {
	now := time.Now()
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		if query == "千问 红包" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(rssDocument(
			rssItem("元宝春节红包", now.Add(-time.Hour), "https://example.com/1"),
			rssItem("元宝新功能", now.Add(-time.Hour), "https://example.com/2"),
		)))
	})

	c := testCatalog(t, server.URL)
	events, errs := newTestFetcher(time.Second, c).FetchAll(context.Background(), c.Sources())

	require.Len(t, events, 1)
	assert.Equal(t, "元宝春节红包", events[0].Title)
	assert.Equal(t, "yuanbao", events[0].Tag)
	assert.Equal(t, "Stub RSS", events[0].SourceName)
	assert.Equal(t, []string{"千问 拉取失败: HTTP 503"}, errs)
	assert.EqualValues(t, 2, server.hits.Load())
}

func TestFetchAllTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := testCatalog(t, server.URL)
	events, errs := newTestFetcher(20*time.Millisecond, c).FetchAll(context.Background(), c.Sources())

	assert.Empty(t, events)
	assert.Equal(t, []string{"元宝 拉取失败: 请求超时", "千问 拉取失败: 请求超时"}, errs)
}

func TestFetchAllNoErrorsIsEmptySlice(t *testing.T) {
	server := newFeedServer(t, func(w http.ResponseWriter, query string) {
		_, _ = w.Write([]byte(rssDocument()))
	})

	c := testCatalog(t, server.URL)
	_, errs := newTestFetcher(time.Second, c).FetchAll(context.Background(), c.Sources())

	assert.NotNil(t, errs)
	assert.Empty(t, errs)
}

func TestFetchSendsUserAgent(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(rssDocument()))
	}))
	defer server.Close()

	c := testCatalog(t, server.URL)
	_, errs := newTestFetcher(time.Second, c).FetchAll(context.Background(), c.Sources()[:1])

	assert.Empty(t, errs)
	assert.Equal(t, "hongbao-test", userAgent)
}

func TestFetchDecodesCharset(t *testing.T) {
	now := time.Now()
	body, err := simplifiedchinese.GBK.NewEncoder().String(
		rssDocument(rssItem("元宝发现金红包", now.Add(-time.Hour), "https://example.com/gbk")))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=gbk")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c := testCatalog(t, server.URL)
	events, errs := newTestFetcher(time.Second, c).FetchAll(context.Background(), c.Sources()[:1])

	assert.Empty(t, errs)
	require.Len(t, events, 1)
	assert.Equal(t, "元宝发现金红包", events[0].Title)
}
