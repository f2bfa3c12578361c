package openrouter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/forPelevin/clipforge/internal/ports"
)

const (
	DefaultModel   = "openai/gpt-4o-mini"
	DefaultTimeout = 90 * time.Second
)

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	// MaxRetries of zero disables client retries.
	MaxRetries int
}

// Adapter is a HighlightModel backed by the OpenRouter chat completions API.
type Adapter struct {
	client      openai.Client
	key         string
	model       string
	temperature float64
	timeout     time.Duration
}

func New(o Options) *Adapter {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	client := openai.NewClient(
		option.WithAPIKey(o.APIKey),
		option.WithBaseURL(normalizeBaseURL(o.BaseURL)+"/api/v1/"),
		option.WithHeader("HTTP-Referer", "https://github.com/forPelevin/clipforge"),
		option.WithHeader("X-Title", "clipforge"),
		option.WithMaxRetries(o.MaxRetries),
	)
	return &Adapter{
		client:      client,
		key:         o.APIKey,
		model:       o.Model,
		temperature: o.Temperature,
		timeout:     o.Timeout,
	}
}

var _ ports.HighlightModel = (*Adapter)(nil)

func (a *Adapter) Suggest(ctx context.Context, req ports.HighlightRequest) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	resp, err := a.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       a.model,
		Temperature: openai.Float(a.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", a.timeout, a.model)
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openrouter status %d: %s", apiErr.StatusCode, truncate(redactSecrets(apiErr.Error(), a.key), 400))
		}
		return "", fmt.Errorf("openrouter request: %s", truncate(redactSecrets(err.Error(), a.key), 400))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openrouter: empty content")
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
