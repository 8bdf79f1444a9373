package feed

import (
	"strings"
	"testing"
	"time"
)

func TestGeneratorRun(t *testing.T) {
	generator := NewGenerator("Hongbao Comb", "http://localhost:3000/")

	published := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{
			ID:          "yuanbao-1",
			Title:       "腾讯元宝春节红包",
			Platform:    "元宝",
			Tag:         "yuanbao",
			Summary:     "每天可领现金",
			SourceName:  "Bing News RSS",
			SourceURL:   "https://news.example.com/1",
			PublishedAt: &published,
		},
		{
			ID:         "ai-2",
			Title:      "AI 红包汇总",
			Platform:   "AI 综合",
			Tag:        "ai",
			Summary:    "暂无摘要",
			SourceName: "Google News RSS",
			SourceURL:  "https://news.example.com/2",
		},
	}

	rss, err := generator.Run(events, published)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectedContent := []string{
		`<rss version="2.0"`,
		"<title>Hongbao Comb</title>",
		"[元宝] 腾讯元宝春节红包",
		"[AI 综合] AI 红包汇总",
		"https://news.example.com/1",
		"Tue, 03 Feb 2026 10:00:00",
	}
	for _, expected := range expectedContent {
		if !strings.Contains(rss, expected) {
			t.Errorf("Expected RSS to contain '%s'", expected)
		}
	}

	if strings.Count(rss, "<item>") != 2 {
		t.Errorf("Expected 2 items, got %d", strings.Count(rss, "<item>"))
	}
}

func TestGeneratorRunEmpty(t *testing.T) {
	generator := NewGenerator("Hongbao Comb", "http://localhost:3000/")

	rss, err := generator.Run(nil, time.Now())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.Contains(rss, "<item>") {
		t.Errorf("Expected no items in empty feed")
	}
}
