package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"golang.org/x/term"
)

const (
	geminiAPIBaseURL   = "https://generativelanguage.googleapis.com"
	telegramAPIBaseURL = "https://api.telegram.org"
)

// envOrder is the order keys are written to the config file.
var envOrder = []string{"GEMINI_API_KEY", "GEMINI_MODEL", "LISTEN_ADDR", "SESSION_SECRET", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOWED_IDS"}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Validator checks credentials against the live APIs.
type Validator struct {
	http        *resty.Client
	geminiURL   string
	telegramURL string
}

func NewValidator() *Validator {
	return &Validator{
		http:        resty.New().SetDebug(false).SetTimeout(10 * time.Second),
		geminiURL:   geminiAPIBaseURL,
		telegramURL: telegramAPIBaseURL,
	}
}

// GeminiKey validates a Gemini API key with the lightweight models list call.
func (v *Validator) GeminiKey(ctx context.Context, key string) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	res, err := v.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", key).
		SetError(&apiErr).
		Get(v.geminiURL + "/v1beta/models")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}
	if res.IsError() {
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", res.StatusCode())
	}
	return nil
}

// TelegramToken validates a Telegram bot token by calling the getMe API.
func (v *Validator) TelegramToken(ctx context.Context, token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}
	_, err := v.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		SetPathParam("token", token).
		Get(v.telegramURL + "/bot{token}/getMe")
	if err != nil {
		return errors.New("connection failed - check your internet")
	}
	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}
	return nil
}

// RunSetupWizard runs an interactive wizard to collect the configuration,
// writes it to the config file and exports it into the current process.
// Returns true if setup was successful and the command should continue.
func RunSetupWizard(ctx context.Context) bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("Rapid Listing - First-time Setup"))
	fmt.Println()

	v := NewValidator()
	validateCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, 10*time.Second)
	}

	var geminiKey, telegramToken, allowedIDs string
	listenAddr := defaultListenAddr

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Get yours at https://aistudio.google.com/apikey").
				Value(&geminiKey).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("API key is required")
					}
					c, cancel := validateCtx()
					defer cancel()
					return v.GeminiKey(c, s)
				}),
			huh.NewInput().
				Title("Listen address").
				Description("Address of the web form").
				Value(&listenAddr),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token (optional)").
				Description("Message @BotFather on Telegram → /newbot → copy token. Leave empty to skip the bot.").
				Value(&telegramToken).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					c, cancel := validateCtx()
					defer cancel()
					return v.TelegramToken(c, s)
				}),
			huh.NewInput().
				Title("Allowed Telegram user IDs (optional)").
				Description("Comma separated. Message @userinfobot to get your ID. Empty allows everyone.").
				Value(&allowedIDs).
				Validate(func(s string) error {
					_, err := ParseAllowedIDs(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"GEMINI_API_KEY":       geminiKey,
		"LISTEN_ADDR":          listenAddr,
		"SESSION_SECRET":       generateSecret(),
		"TELEGRAM_BOT_TOKEN":   telegramToken,
		"TELEGRAM_ALLOWED_IDS": allowedIDs,
	}

	configPath, err := FilePath()
	if err == nil {
		err = WriteEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	for k, val := range values {
		os.Setenv(k, val)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("rl-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// WriteEnvFile writes the configuration to path. Uses restrictive
// permissions (0600) since the file contains secrets. Empty values are
// skipped.
func WriteEnvFile(path string, values map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	return writeEnv(f, values)
}

func writeEnv(w io.Writer, values map[string]string) error {
	// Write in a consistent order, quoting values to handle special characters
	for _, key := range envOrder {
		val, ok := values[key]
		if !ok || val == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s=%q\n", key, val); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

// WaitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}
