package events

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/feed"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `version: test
keywords:
  core: [红包, 现金]
  ai: [ai, 元宝, 千问]
  catch_all_tags: [ai]
engines:
  stub:
    name: Stub RSS
    url: %s/rss?q={query}
kind_engines:
  model: [stub]
  info: [stub]
sources:
  - platform: 元宝
    tag: yuanbao
    query: 元宝 红包
  - platform: 千问
    tag: qwen
    query: 千问 红包
`

func testCatalog(t *testing.T, baseURL string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(fmt.Sprintf(testCatalogYAML, baseURL)))
	require.NoError(t, err)
	return c
}

func rssItem(title string, published time.Time, link string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description>限时领取</description><pubDate>%s</pubDate></item>`,
		title, link, published.UTC().Format(time.RFC1123Z))
}

func rssDocument(items ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?><rss version="2.0"><channel><title>stub</title>` +
		strings.Join(items, "") + `</channel></rss>`
}

// feedServer serves a body per query and counts requests.
type feedServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newFeedServer(t *testing.T, handler func(w http.ResponseWriter, query string)) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		handler(w, r.URL.Query().Get("q"))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestFetcher(timeout time.Duration, c *catalog.Catalog) *Fetcher {
	parser := feed.NewParser(feed.NewFilterer(c.Keywords))
	return NewFetcher(nil, parser, "hongbao-test", timeout, nil)
}

func at(t time.Time) *time.Time {
	return &t
}
