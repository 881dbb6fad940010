package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]any{"ok": true})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestError(t *testing.T) {
	t.Run("Should merge fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, http.StatusBadGateway, "upstream", map[string]any{"kind": "generation"})
		assert.JSONEq(t, `{"error":"upstream","kind":"generation"}`, rec.Body.String())
	})

	t.Run("Should not let fields override the message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, http.StatusBadRequest, "bad", map[string]any{"error": "other"})
		assert.JSONEq(t, `{"error":"bad"}`, rec.Body.String())
	})
}
