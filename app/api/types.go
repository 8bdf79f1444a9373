package api

import (
	"context"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/analysis"
	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/events"
	"github.com/lysyi3m/hongbao-comb/app/feed"
)

type EventsCache interface {
	Get(ctx context.Context) (*events.Result, error)
	State() events.State
}

type Analyzer interface {
	Analyze(ctx context.Context, evts []analysis.Event, note string) analysis.Result
	Disabled(message string) analysis.Result
	Enabled() bool
}

type GeneratorInterface interface {
	Run(events []feed.Event, updatedAt time.Time) (string, error)
}

var (
	_ EventsCache        = (*events.Cache)(nil)
	_ Analyzer           = (*analysis.Client)(nil)
	_ GeneratorInterface = (*feed.Generator)(nil)
)

type Handler struct {
	cache     EventsCache
	fallback  func(cause string) *events.Result
	analyzer  Analyzer
	generator GeneratorInterface
	sources   []catalog.Source
	version   string
}
