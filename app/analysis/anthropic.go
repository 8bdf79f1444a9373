package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicCompleter calls the Messages API through the official SDK. SDK
// retries are off; Client owns the retry policy.
type anthropicCompleter struct {
	client anthropic.Client
}

func newAnthropicCompleter(p Provider, httpClient *http.Client) *anthropicCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL+"/"))
	}
	return &anthropicCompleter{client: anthropic.NewClient(opts...)}
}

func (a *anthropicCompleter) complete(ctx context.Context, model, prompt string) attempt {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{{
			Text: systemPrompt,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0.3),
	})

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return attempt{
			model:   model,
			status:  apiErr.StatusCode,
			code:    payloadCode([]byte(apiErr.RawJSON())),
			message: apiErr.Error(),
		}
	}
	if err != nil {
		return attempt{model: model, network: true, message: err.Error()}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		text.WriteString(block.Text)
	}
	return attempt{ok: true, status: http.StatusOK, model: model, content: text.String()}
}
