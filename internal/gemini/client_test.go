package gemini

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsilias/ease/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))), &calls
}

func TestClientGenerate(t *testing.T) {
	cred := types.NewCredential("test-key")

	t.Run("Should post the prompt with the key header and return candidate text", func(t *testing.T) {
		c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/models/gemini-1.5-flash-latest:generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
			assert.Empty(t, r.URL.Query().Get("key"))

			var body generateContentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Contents, 1)
			assert.Equal(t, "explain fractions", body.Contents[0].Parts[0].Text)

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Fractions "},{"text":"are parts."}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3}}`)
		})
		text, _, err := c.Generate(t.Context(), cred, "gemini-1.5-flash-latest", "explain fractions")
		require.NoError(t, err)
		assert.Equal(t, "Fractions are parts.", text)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should surface api errors without retrying", func(t *testing.T) {
		c, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
		})
		_, _, err := c.Generate(t.Context(), cred, "m", "p")
		require.ErrorContains(t, err, "API key not valid")
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should not retry server errors", func(t *testing.T) {
		c, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, _, err := c.Generate(t.Context(), cred, "m", "p")
		require.ErrorContains(t, err, "503")
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Should treat a response without candidates as empty", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		})
		text, _, err := c.Generate(t.Context(), cred, "m", "p")
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("Should fail a blocked prompt", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
		})
		_, _, err := c.Generate(t.Context(), cred, "m", "p")
		require.ErrorContains(t, err, "SAFETY")
	})

	t.Run("Should not call out without a credential", func(t *testing.T) {
		c, calls := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
		_, _, err := c.Generate(t.Context(), types.Credential{}, "m", "p")
		require.ErrorIs(t, err, ErrNoCredential)
		assert.Zero(t, calls.Load())
	})
}
