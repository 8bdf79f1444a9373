package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxResponseBytes = 2 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// openAICompleter speaks the OpenAI-compatible chat completions protocol
// that most vendors expose.
type openAICompleter struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func newOpenAICompleter(p Provider, client *http.Client) *openAICompleter {
	return &openAICompleter{
		client:   client,
		endpoint: p.BaseURL + p.ChatPath,
		apiKey:   p.APIKey,
	}
}

func (o *openAICompleter) complete(ctx context.Context, model, prompt string) attempt {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return attempt{model: model, message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return attempt{model: model, message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return attempt{model: model, network: true, message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attempt{model: model, status: resp.StatusCode, network: true, message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return attempt{
			model:   model,
			status:  resp.StatusCode,
			code:    payloadCode(data),
			message: strings.TrimSpace(string(data)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return attempt{model: model, status: resp.StatusCode, message: fmt.Sprintf("invalid response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		// some vendors report quota errors inside a 200 body
		return attempt{
			model:   model,
			status:  resp.StatusCode,
			code:    payloadCode(data),
			message: "no choices in response: " + strings.TrimSpace(string(data)),
		}
	}

	return attempt{
		ok:      true,
		status:  resp.StatusCode,
		model:   model,
		content: messageText(parsed.Choices[0].Message.Content),
	}
}

// messageText accepts content as a plain string or as an array of parts.
func messageText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// payloadCode picks the vendor error code out of an error body. Vendors
// disagree on where it lives, so transient codes win over the first found.
func payloadCode(data []byte) string {
	var top map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return ""
	}

	var codes []string
	if nested, ok := top["error"].(map[string]any); ok {
		codes = append(codes, stringFields(nested, "code", "type", "status")...)
	}
	codes = append(codes, stringFields(top, "code", "status")...)

	for _, code := range codes {
		if transientCodes[code] {
			return code
		}
	}
	if len(codes) > 0 {
		return codes[0]
	}
	return ""
}

func stringFields(m map[string]any, keys ...string) []string {
	var out []string
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return out
}
