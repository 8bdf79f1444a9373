package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/hongbao-comb/app/analysis"
	"github.com/lysyi3m/hongbao-comb/app/catalog"
	"github.com/lysyi3m/hongbao-comb/app/events"
)

const maxAnalyzeBody = 1 << 20

func NewHandler(cache EventsCache, fallback func(cause string) *events.Result, analyzer Analyzer,
	generator GeneratorInterface, sources []catalog.Source, version string) *Handler {
	return &Handler{
		cache:     cache,
		fallback:  fallback,
		analyzer:  analyzer,
		generator: generator,
		sources:   sources,
		version:   version,
	}
}

func (h *Handler) GetEvents(c *gin.Context) {
	result, err := h.cache.Get(c.Request.Context())
	if err != nil {
		slog.Error("Aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, h.fallback(err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}

// Analyze always answers 200; failures are reported in the body so the UI
// can show them as-is.
func (h *Handler) Analyze(c *gin.Context) {
	req := readAnalyzeRequest(c)
	c.JSON(http.StatusOK, h.analyzer.Analyze(c.Request.Context(), req.Events, req.Note))
}

type analyzeRequest struct {
	Events []analysis.Event
	Note   string
}

// readAnalyzeRequest treats an unreadable, oversized or malformed body as
// empty input. Fields are decoded independently so one bad field does not
// discard the other.
func readAnalyzeRequest(c *gin.Context) analyzeRequest {
	var req analyzeRequest

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalyzeBody))
	if err != nil {
		slog.Debug("Ignoring unreadable analyze body", "error", err)
		return req
	}

	var raw struct {
		Events json.RawMessage `json:"events"`
		Note   json.RawMessage `json:"note"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Debug("Ignoring malformed analyze body", "error", err)
		return req
	}

	if err := json.Unmarshal(raw.Events, &req.Events); err != nil {
		req.Events = nil
	}
	if err := json.Unmarshal(raw.Note, &req.Note); err != nil {
		req.Note = ""
	}
	return req
}

func (h *Handler) GetFeed(c *gin.Context) {
	result, err := h.cache.Get(c.Request.Context())
	if err != nil {
		slog.Error("Aggregation failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(result.Events, result.UpdatedAt)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(result.Events)))
	c.Header("X-Last-Updated", result.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"sources":   len(h.sources),
		"cache":     h.cache.State(),
		"analysis":  h.analyzer.Enabled(),
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources := make([]gin.H, 0, len(h.sources))
	for _, src := range h.sources {
		sources = append(sources, gin.H{
			"platform":   src.Platform,
			"tag":        src.Tag,
			"kind":       src.Kind,
			"engine":     src.Engine,
			"sourceName": src.SourceName,
			"url":        src.URL,
			"hints":      src.Hints,
			"requireAi":  src.RequireAI,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
		"cache":   h.cache.State(),
	})
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
}

// recoverPanic keeps the response contract of each endpoint when a handler panics.
func (h *Handler) recoverPanic(c *gin.Context, recovered any) {
	cause := fmt.Sprint(recovered)
	slog.Error("Handler panic", "path", c.Request.URL.Path, "error", cause)

	switch c.Request.URL.Path {
	case "/api/analyze":
		c.AbortWithStatusJSON(http.StatusOK, h.analyzer.Disabled("分析失败："+cause))
	case "/api/events":
		c.AbortWithStatusJSON(http.StatusInternalServerError, h.fallback(cause))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
	}
}
