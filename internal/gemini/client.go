package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/varsilias/ease/pkg/types"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var (
	ErrNoCredential = errors.New("gemini: api key not set")
	ErrNoModel      = errors.New("gemini: model not set")
)

// Client talks to the Gemini generateContent endpoint. Each Generate call is
// exactly one HTTP request; failures are returned, never retried.
type Client struct {
	log  *slog.Logger
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	r := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &Client{log: log, http: r}
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate. A response without text is an empty completion, not an
// error.
func (c *Client) Generate(ctx context.Context, cred types.Credential, model, prompt string) (string, time.Duration, error) {
	if cred.Empty() {
		return "", 0, ErrNoCredential
	}
	if model == "" {
		return "", 0, ErrNoModel
	}

	body := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	var (
		out    generateContentResponse
		apiErr errorResponse
	)
	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", cred.Reveal()).
		SetPathParam("model", model).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/models/{model}:generateContent")
	latency := time.Since(start)
	if err != nil {
		return "", latency, fmt.Errorf("gemini generate: %w", err)
	}
	if res.IsError() {
		if apiErr.Error.Message != "" {
			return "", latency, fmt.Errorf("gemini generate (%d %s): %s", res.StatusCode(), apiErr.Error.Status, apiErr.Error.Message)
		}
		return "", latency, fmt.Errorf("gemini generate: status %d", res.StatusCode())
	}
	if reason := out.PromptFeedback.BlockReason; reason != "" {
		return "", latency, fmt.Errorf("gemini generate: prompt blocked (%s)", reason)
	}

	text := out.text()
	c.log.Debug("gemini generate",
		"model", model,
		"latency_ms", latency.Milliseconds(),
		"prompt_tokens", out.UsageMetadata.PromptTokenCount,
		"completion_tokens", out.UsageMetadata.CandidatesTokenCount,
		"empty", text == "",
	)
	return text, latency, nil
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates     []candidate    `json:"candidates"`
	PromptFeedback promptFeedback `json:"promptFeedback"`
	UsageMetadata  usageMetadata  `json:"usageMetadata"`
}

func (r generateContentResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
