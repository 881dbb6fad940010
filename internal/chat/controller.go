package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/varsilias/ease/internal/failure"
	"github.com/varsilias/ease/internal/metrics"
	"github.com/varsilias/ease/internal/prompt"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/pkg/types"
)

var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrNoCredential  = errors.New("api key is required")
	errNoModelPicker = errors.New("no model configured")
)

// ModelChecker validates a requested model id.
type ModelChecker interface {
	Healthy(ctx context.Context, model string) error
}

type Controller struct {
	log          *slog.Logger
	eng          Engine
	models       ModelChecker
	defaultModel string
	metrics      *metrics.Recorder
}

func NewController(log *slog.Logger, eng Engine, models ModelChecker, defaultModel string, rec *metrics.Recorder) *Controller {
	return &Controller{log: log, eng: eng, models: models, defaultModel: defaultModel, metrics: rec}
}

// Reply is the assistant turn produced by one chat cycle.
type Reply struct {
	Message types.Message
	Latency time.Duration
	// Empty is set when the model answered with no text.
	Empty bool
}

// Chat runs one turn: gate on input, compose from the full history, call the
// engine, then append the user and assistant turns together. A failed call
// leaves the history as it was so the user can retry.
func (c *Controller) Chat(ctx context.Context, sess *session.Session, model, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, failure.Validation("chat", ErrEmptyMessage)
	}
	cred := sess.Credential()
	if cred.Empty() {
		return Reply{}, failure.Validation("chat", ErrNoCredential)
	}
	model, err := c.resolveModel(ctx, model)
	if err != nil {
		return Reply{}, failure.Validation("chat", err)
	}

	defer sess.Exclusive()()

	user := types.Message{Role: types.RoleUser, Content: message, Timestamp: time.Now()}
	text, latency, err := c.eng.Generate(ctx, cred, model, prompt.ComposeChat(append(sess.History(), user)))
	if err != nil {
		c.log.Error("engine call", "session", sess.ID, "model", model, "err", err.Error())
		c.metrics.ObserveGeneration(types.TabChat, metrics.OutcomeError, latency)
		return Reply{}, failure.Generation("chat", err)
	}

	empty := strings.TrimSpace(text) == ""
	outcome := metrics.OutcomeOK
	if empty {
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.ObserveGeneration(types.TabChat, outcome, latency)

	assistant := types.Message{Role: types.RoleAssistant, Content: text, Timestamp: time.Now()}
	sess.Append(user, assistant)
	c.log.Info("chat", "session", sess.ID, "model", model, "latency_ms", latency.Milliseconds(), "empty", empty)
	return Reply{Message: assistant, Latency: latency, Empty: empty}, nil
}

func (c *Controller) resolveModel(ctx context.Context, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return "", errNoModelPicker
	}
	if c.models == nil {
		return model, nil
	}
	if err := c.models.Healthy(ctx, model); err != nil {
		return "", err
	}
	return model, nil
}

// DefaultModel is the deployment's model id.
func (c *Controller) DefaultModel() string { return c.defaultModel }
