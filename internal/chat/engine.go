package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/varsilias/ease/internal/gemini"
	"github.com/varsilias/ease/pkg/types"
)

// Engine is the generation adapter: one prompt in, one completion out.
// Implementations make a single attempt per call.
type Engine interface {
	Generate(ctx context.Context, cred types.Credential, model, prompt string) (text string, latency time.Duration, err error)
}

// EchoEngine answers locally without a model. It backs offline demos.
type EchoEngine struct {
	minLatency time.Duration
}

func NewEchoEngine(minLatency time.Duration) *EchoEngine { return &EchoEngine{minLatency: minLatency} }

func (e *EchoEngine) Generate(ctx context.Context, _ types.Credential, model, prompt string) (string, time.Duration, error) {
	start := time.Now()
	if e.minLatency > 0 {
		select {
		case <-ctx.Done():
			return "", time.Since(start), ctx.Err()
		case <-time.After(e.minLatency):
		}
	}
	text := fmt.Sprintf("(demo:%s) you said: %s", model, lastUserLine(prompt))
	return text, time.Since(start), nil
}

// lastUserLine picks the newest user turn out of a composed prompt.
func lastUserLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if rest, ok := strings.CutPrefix(lines[i], "USER: "); ok {
			return rest
		}
	}
	return lines[len(lines)-1]
}

type GeminiEngine struct {
	c *gemini.Client
}

func NewGeminiEngine(c *gemini.Client) *GeminiEngine {
	return &GeminiEngine{
		c: c,
	}
}

func (e *GeminiEngine) Generate(ctx context.Context, cred types.Credential, model, prompt string) (string, time.Duration, error) {
	return e.c.Generate(ctx, cred, model, prompt)
}
