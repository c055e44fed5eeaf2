package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_TIMEOUT", "LISTEN_ADDR", "SESSION_SECRET",
	"SESSION_TTL", "CACHE_DB_PATH", "MAX_UPLOAD_BYTES", "TELEGRAM_BOT_TOKEN",
	"TELEGRAM_ALLOWED_IDS", "LOG_LEVEL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, llm.DefaultModel, cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "rapidlisting.db", cfg.CacheDBPath)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.TelegramAllow)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_TIMEOUT", "15s")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CACHE_DB_PATH", "")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("TELEGRAM_ALLOWED_IDS", "1, 22,333")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, 15*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "", cfg.CacheDBPath)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, []int64{1, 22, 333}, cfg.TelegramAllow)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.True(t, IsMissingAPIKey(err))
	require.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"GEMINI_TIMEOUT":       "soon",
		"SESSION_TTL":          "-1h",
		"MAX_UPLOAD_BYTES":     "0",
		"TELEGRAM_ALLOWED_IDS": "12,abc",
		"LOG_LEVEL":            "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GEMINI_API_KEY", "key")
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), EnvFileName)
	values := map[string]string{
		"GEMINI_API_KEY":     "abc def=ghi",
		"LISTEN_ADDR":        ":9090",
		"TELEGRAM_BOT_TOKEN": "",
	}
	require.NoError(t, WriteEnvFile(path, values))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	read, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GEMINI_API_KEY": "abc def=ghi", "LISTEN_ADDR": ":9090"}, read)
}

func newTestValidator(ts *httptest.Server) *Validator {
	return &Validator{http: resty.New(), geminiURL: ts.URL, telegramURL: ts.URL}
}

func TestValidator_GeminiKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("x-goog-api-key") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer ts.Close()
	v := newTestValidator(ts)

	assert.NoError(t, v.GeminiKey(context.Background(), "good"))
	assert.EqualError(t, v.GeminiKey(context.Background(), "bad"), "API key not valid")
}

func TestValidator_TelegramToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/bot123/getMe" {
			w.Write([]byte(`{"ok":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer ts.Close()
	v := newTestValidator(ts)

	assert.NoError(t, v.TelegramToken(context.Background(), "123"))
	assert.EqualError(t, v.TelegramToken(context.Background(), "999"), "Unauthorized")
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	level, err := LogLevelFromEnv()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	t.Setenv("LOG_LEVEL", " Warn ")
	level, err = LogLevelFromEnv()
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	t.Setenv("LOG_LEVEL", "loud")
	_, err = LogLevelFromEnv()
	assert.Error(t, err)
}
