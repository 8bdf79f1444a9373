package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/feed"
)

// Result is one aggregation snapshot. It is shared between readers once
// published and must not be modified.
type Result struct {
	UpdatedAt      time.Time          `json:"updatedAt"`
	Total          int                `json:"total"`
	Events         []feed.Event       `json:"events"`
	GroupedEvents  []PlatformGroup    `json:"groupedEvents"`
	Errors         []string           `json:"errors"`
	ModelPlatforms []catalog.Platform `json:"modelPlatforms"`
	InfoPlatforms  []catalog.Platform `json:"infoPlatforms"`
	WindowDays     int                `json:"windowDays"`
}

// PlatformGroup holds one tag's events, newest first.
type PlatformGroup struct {
	Tag      string       `json:"tag"`
	Platform string       `json:"platform"`
	LatestAt *time.Time   `json:"latestAt"`
	Count    int          `json:"count"`
	Events   []feed.Event `json:"events"`
}

// FetchError is a failure of a single source; siblings are unaffected.
type FetchError struct {
	Platform   string
	SourceName string
	URL        string
	Status     int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s 拉取失败: %s", e.Platform, e.cause())
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) cause() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("HTTP %d", e.Status)
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "请求超时"
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "未知错误"
	}
}
