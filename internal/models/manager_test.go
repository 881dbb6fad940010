package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticManager(t *testing.T) {
	m := NewStaticManager([]string{"gemini-1.5-flash-latest", "gemini-1.5-pro"})

	t.Run("Should list a copy of the allow-list", func(t *testing.T) {
		got, err := m.List(t.Context())
		require.NoError(t, err)
		got[0] = "changed"
		again, _ := m.List(t.Context())
		assert.Equal(t, "gemini-1.5-flash-latest", again[0])
	})
	t.Run("Should accept listed models only", func(t *testing.T) {
		require.NoError(t, m.Healthy(t.Context(), "gemini-1.5-pro"))
		require.ErrorIs(t, m.Healthy(t.Context(), "gpt-4"), ErrUnknownModel)
	})
	t.Run("Should default to the first entry", func(t *testing.T) {
		assert.Equal(t, "gemini-1.5-flash-latest", m.Default())
		assert.Empty(t, NewStaticManager(nil).Default())
	})
	t.Run("Should drop blanks and repeats", func(t *testing.T) {
		got, _ := NewStaticManager([]string{" a ", "", "b", "a"}).List(t.Context())
		assert.Equal(t, []string{"a", "b"}, got)
	})
}
