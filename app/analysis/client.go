package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/hongbao-comb/app/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	disabledMessage = "未配置 AI API。请设置 AI_API_KEY、AI_API_BASE_URL、AI_API_MODEL 后重试。"
	emptyMessage    = "AI 返回为空，请稍后重试。"
	failedMessage   = "AI 分析暂时不可用，已尝试全部候选模型。"

	failureTail     = 3
	maxFailureRunes = 160
)

var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var transientCodeList = []string{
	"rate_limit_exceeded", "server_error", "overloaded_error", "rate_limit_error", "api_error",
	"UNAVAILABLE", "RESOURCE_EXHAUSTED", "DEADLINE_EXCEEDED", "INTERNAL",
	"1302", "1305",
}

var transientCodes = func() map[string]bool {
	m := make(map[string]bool, len(transientCodeList))
	for _, code := range transientCodeList {
		m[code] = true
	}
	return m
}()

// Result is what the analyze endpoint returns, whatever happened upstream.
type Result struct {
	Enabled     bool      `json:"enabled"`
	Model       *string   `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
	Analysis    string    `json:"analysis"`
}

// attempt is the outcome of one completion call.
type attempt struct {
	ok      bool
	status  int
	model   string
	content string
	message string
	code    string
	network bool
}

func (a attempt) retryable() bool {
	return a.network || transientStatuses[a.status] || transientCodes[a.code]
}

func (a attempt) String() string {
	var b strings.Builder
	b.WriteString(a.model)
	if a.status != 0 {
		fmt.Fprintf(&b, " HTTP %d", a.status)
	}
	if a.code != "" {
		fmt.Fprintf(&b, " [%s]", a.code)
	}
	if a.message != "" {
		b.WriteString(": ")
		b.WriteString(a.message)
	}
	return truncate(b.String(), maxFailureRunes)
}

type completer interface {
	complete(ctx context.Context, model, prompt string) attempt
}

type backend struct {
	Provider
	completer completer
}

type Options struct {
	// Timeout bounds every single attempt.
	Timeout time.Duration
	// Backoff is the first retry delay; later delays double.
	Backoff    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

type Client struct {
	primary   *backend
	secondary *backend
	opts      Options
	now       func() time.Time
}

func NewClient(primary, secondary Provider, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 18 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	c := &Client{opts: opts, now: time.Now}
	if primary.Configured() {
		c.primary = newBackend(primary, opts.HTTPClient)
	}
	if secondary.Configured() {
		c.secondary = newBackend(secondary, opts.HTTPClient)
	}
	return c
}

func newBackend(p Provider, httpClient *http.Client) *backend {
	var comp completer
	switch p.Protocol {
	case ProtocolAnthropic:
		comp = newAnthropicCompleter(p, httpClient)
	default:
		comp = newOpenAICompleter(p, httpClient)
	}
	return &backend{Provider: p, completer: comp}
}

func (c *Client) Enabled() bool {
	return c.primary != nil
}

// Analyze never fails: every failure mode becomes a disabled Result with
// an explanation in Analysis.
func (c *Client) Analyze(ctx context.Context, events []Event, note string) Result {
	if c.primary == nil {
		return c.Disabled(disabledMessage)
	}

	prompt := buildPrompt(events, note)

	result, failures := c.run(ctx, c.primary, prompt)
	if result != nil {
		return *result
	}
	summaries := []string{summarize(c.primary.Name, failures)}

	if c.primary.Family.CrossVendor && c.secondary != nil {
		slog.Warn("Primary provider exhausted, switching to secondary",
			"family", c.primary.Family.Name,
			"secondary_model", c.secondary.Model)

		result, failures = c.run(ctx, c.secondary, prompt)
		if result != nil {
			return *result
		}
		summaries = append(summaries, summarize(c.secondary.Name, failures))
	}

	return c.Disabled(failedMessage + "\n" + strings.Join(summaries, "\n"))
}

func (c *Client) Disabled(message string) Result {
	return Result{
		Enabled:     false,
		GeneratedAt: c.now().UTC(),
		Analysis:    message,
	}
}

// run walks the provider's candidate models until one succeeds.
func (c *Client) run(ctx context.Context, b *backend, prompt string) (*Result, []string) {
	var failures []string

	for _, model := range b.Candidates() {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err.Error())
			break
		}

		a := c.tryModel(ctx, b, model, prompt, &failures)
		if ctx.Err() != nil {
			break
		}
		if !a.ok {
			continue
		}

		content := strings.TrimSpace(a.content)
		if content == "" {
			content = emptyMessage
		}
		return &Result{
			Enabled:     true,
			Model:       &a.model,
			GeneratedAt: c.now().UTC(),
			Analysis:    content,
		}, nil
	}

	return nil, failures
}

func (c *Client) tryModel(ctx context.Context, b *backend, model, prompt string, failures *[]string) attempt {
	var last attempt
	backoff := retry.WithMaxRetries(uint64(b.Retries), retry.NewExponential(c.opts.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		last = b.completer.complete(attemptCtx, model, prompt)
		c.opts.Metrics.ObserveAttempt(b.Name, model, last.ok)
		if last.ok {
			return nil
		}

		*failures = append(*failures, last.String())
		slog.Warn("Completion attempt failed",
			"provider", b.Name,
			"model", model,
			"status", last.status,
			"code", last.code,
			"retryable", last.retryable())

		err := errors.New(last.String())
		if last.retryable() {
			return retry.RetryableError(err)
		}
		return err
	})

	// cancellation while waiting between attempts surfaces only here
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		*failures = append(*failures, model+": "+ctxErr.Error())
	}
	return last
}

func summarize(provider string, failures []string) string {
	if len(failures) == 0 {
		return provider + ": 无可用模型"
	}
	if len(failures) > failureTail {
		failures = failures[len(failures)-failureTail:]
	}
	return provider + ": " + strings.Join(failures, "；")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
