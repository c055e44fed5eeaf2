package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/rs/zerolog"
)

const (
	AppName     = "rapidlisting"
	EnvFileName = "config.env"
)

const (
	defaultListenAddr     = ":8080"
	defaultSessionTTL     = 2 * time.Hour
	defaultGeminiTimeout  = 60 * time.Second
	defaultCacheDBPath    = "rapidlisting.db"
	defaultMaxUploadBytes = 10 << 20
)

// Config is the runtime configuration read from the environment.
type Config struct {
	GeminiAPIKey   string
	GeminiModel    string
	GeminiTimeout  time.Duration
	ListenAddr     string
	SessionSecret  string
	SessionTTL     time.Duration
	CacheDBPath    string
	MaxUploadBytes int64
	TelegramToken  string
	TelegramAllow  []int64
	LogLevel       zerolog.Level
}

// Dir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from ./.env and from the config
// file in the user's config directory. Variables already set win. Errors are
// ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load(".env")
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// Load reads the configuration from the environment. A missing Gemini API
// key is reported as llm.ErrMissingAPIKey alongside the parsed config.
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    envOr("GEMINI_MODEL", llm.DefaultModel),
		ListenAddr:     envOr("LISTEN_ADDR", defaultListenAddr),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		CacheDBPath:    defaultCacheDBPath,
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		MaxUploadBytes: defaultMaxUploadBytes,
	}
	if v, ok := os.LookupEnv("CACHE_DB_PATH"); ok {
		cfg.CacheDBPath = v
	}

	var err error
	if cfg.GeminiTimeout, err = durationEnv("GEMINI_TIMEOUT", defaultGeminiTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer: %q", v)
		}
		cfg.MaxUploadBytes = n
	}
	if cfg.TelegramAllow, err = ParseAllowedIDs(os.Getenv("TELEGRAM_ALLOWED_IDS")); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = LogLevelFromEnv(); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		return cfg, llm.ErrMissingAPIKey
	}
	return cfg, nil
}

// LogLevelFromEnv reads LOG_LEVEL, defaulting to info.
func LogLevelFromEnv() (zerolog.Level, error) {
	v := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if v == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
	}
	return level, nil
}

// ParseAllowedIDs parses a comma separated list of Telegram user IDs.
func ParseAllowedIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsMissingAPIKey reports whether err means no Gemini API key is set.
func IsMissingAPIKey(err error) bool {
	return errors.Is(err, llm.ErrMissingAPIKey)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
