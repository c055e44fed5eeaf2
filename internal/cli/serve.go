package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/rapidlisting/internal/bot"
	"github.com/raine/rapidlisting/internal/config"
	"github.com/raine/rapidlisting/internal/llm"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/raine/rapidlisting/internal/storage"
	"github.com/raine/rapidlisting/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = time.Minute

func newServeCmd() *cobra.Command {
	var (
		addr          string
		noBot         bool
		secureCookies bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web form and the Telegram bot",
		Long: `Starts the web interface and, when TELEGRAM_BOT_TOKEN is set, the
Telegram bot. Both share the same Gemini client and extraction cache.

If GEMINI_API_KEY is missing and the terminal is interactive, a setup wizard
collects the configuration first.`,
		Example: `  # Start on the configured address (default :8080)
  rapidlisting serve

  # Web form only, on a custom address
  rapidlisting serve --addr 127.0.0.1:3000 --no-bot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			store, err := openCache(cfg.CacheDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				Timeout: cfg.GeminiTimeout,
			})
			if err != nil {
				return err
			}
			log.Info().Str("model", gemini.Model()).Msg("gemini client initialized")

			extractor := llm.NewCachedExtractor(gemini, store, gemini.Model())
			service := session.NewService(extractor, gemini)
			manager := session.NewManager(cfg.SessionTTL)

			key, err := web.DeriveKey(cfg.SessionSecret)
			if err != nil {
				return err
			}
			if cfg.SessionSecret == "" {
				log.Warn().Msg("SESSION_SECRET is not set, web sessions will not survive a restart")
			}

			srv, err := web.New(manager, service, web.Options{
				Addr:           cfg.ListenAddr,
				MaxUploadBytes: cfg.MaxUploadBytes,
				SessionKey:     key,
				SecureCookies:  secureCookies,
			})
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(ctx) })
			g.Go(func() error { return manager.Run(ctx, sweepInterval) })

			switch {
			case noBot:
				log.Info().Msg("telegram bot disabled by flag")
			case cfg.TelegramToken == "":
				log.Info().Msg("TELEGRAM_BOT_TOKEN is not set, running without the bot")
			default:
				tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
				if err != nil {
					return fmt.Errorf("failed to initialize telegram bot: %w", err)
				}
				tg.Debug = false
				log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")
				bot.RegisterCommands(tg)

				b := bot.NewBot(tg, manager, service, bot.Config{
					AllowedIDs:    cfg.TelegramAllow,
					MaxPhotoBytes: cfg.MaxUploadBytes,
				})
				g.Go(func() error { return b.Run(ctx, tg) })
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("shutdown with error")
				return err
			}
			log.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides LISTEN_ADDR)")
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "Do not start the Telegram bot")
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "Mark the session cookie Secure (serve behind HTTPS)")

	return cmd
}

// loadConfig reads the configuration, running the setup wizard once when the
// Gemini API key is missing and a user is at the terminal.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err == nil {
		return cfg, nil
	}
	if !config.IsMissingAPIKey(err) || !config.IsInteractiveTerminal() {
		return nil, err
	}
	if !config.RunSetupWizard(ctx) {
		return nil, errors.New("setup was not completed")
	}
	return config.Load()
}

// openCache opens the extraction cache and logs how many entries it holds.
func openCache(path string) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extraction cache: %w", err)
	}
	entries, err := store.CountExtractions()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to read extraction cache: %w", err)
	}
	log.Info().Str("dbPath", path).Int("entries", entries).Msg("extraction cache initialized")
	return store, nil
}
