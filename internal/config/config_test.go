package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad(t *testing.T) {
	t.Run("Should fall back to defaults", func(t *testing.T) {
		cfg, err := Load([]string{noEnvFile(t)})
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Addr)
		assert.Equal(t, "gemini-1.5-flash-latest", cfg.Gemini.Model)
		assert.Equal(t, []string{"gemini-1.5-flash-latest"}, cfg.Gemini.Models)
		assert.Equal(t, "en", cfg.Speech.Language)
		assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	})

	t.Run("Should read EASE_ environment variables", func(t *testing.T) {
		t.Setenv("EASE_GEMINI_MODEL", "gemini-1.5-pro")
		t.Setenv("EASE_GEMINI_MODELS", "gemini-1.5-flash,gemini-1.5-pro")
		t.Setenv("EASE_SESSION_TTL", "45m")
		t.Setenv("EASE_SESSION_SECURE", "true")
		t.Setenv("EASE_LOG_LEVEL", "DEBUG")
		cfg, err := Load([]string{noEnvFile(t)})
		require.NoError(t, err)
		assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
		assert.Equal(t, []string{"gemini-1.5-pro", "gemini-1.5-flash"}, cfg.Gemini.Models)
		assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
		assert.True(t, cfg.Session.Secure)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Should let flags win over the environment", func(t *testing.T) {
		t.Setenv("EASE_SERVER_ADDR", "9000")
		cfg, err := Load([]string{noEnvFile(t), "-addr", ":7070", "-model", "gemini-2.0-flash", "-log-json"})
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Addr)
		assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
		assert.True(t, cfg.Log.JSON)
	})

	t.Run("Should read a dotenv file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("EASE_SPEECH_LANGUAGE=fr\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("EASE_SPEECH_LANGUAGE") })
		cfg, err := Load([]string{"-env-file", path})
		require.NoError(t, err)
		assert.Equal(t, "fr", cfg.Speech.Language)
	})

	t.Run("Should reject invalid values", func(t *testing.T) {
		t.Setenv("EASE_GEMINI_ENGINE", "openai")
		_, err := Load([]string{noEnvFile(t)})
		require.ErrorContains(t, err, "invalid config")
	})
}

func TestTransformEnv(t *testing.T) {
	k, v := transformEnv("EASE_UPLOAD_MAX_BYTES", "42")
	assert.Equal(t, "upload.max_bytes", k)
	assert.Equal(t, "42", v)

	k, _ = transformEnv("EASE_", "x")
	assert.Empty(t, k)
}
