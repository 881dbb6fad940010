package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownModel = errors.New("unknown model")

// Manager lists the generation models a deployment allows.
type Manager interface {
	List(ctx context.Context) ([]string, error)
	Healthy(ctx context.Context, model string) error
}

// StaticManager serves a fixed allow-list taken from configuration. The
// first entry is the default model.
type StaticManager struct{ items []string }

// NewStaticManager drops blank and repeated ids, keeping first-seen order.
func NewStaticManager(items []string) *StaticManager {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" && !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return &StaticManager{items: out}
}

func (m *StaticManager) List(context.Context) ([]string, error) {
	return slices.Clone(m.items), nil
}

func (m *StaticManager) Healthy(_ context.Context, model string) error {
	if !slices.Contains(m.items, model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return nil
}

func (m *StaticManager) Default() string {
	if len(m.items) == 0 {
		return ""
	}
	return m.items[0]
}
