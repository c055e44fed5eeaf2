package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

// DefaultMaxPhotoBytes is the largest photo download accepted.
const DefaultMaxPhotoBytes = 10 << 20

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Poller receives updates from Telegram.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config configures the bot.
type Config struct {
	// AllowedIDs restricts the bot to these Telegram user ids. Empty
	// allows everyone.
	AllowedIDs    []int64
	MaxPhotoBytes int64
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg       BotAPI
	state    *BotState
	sessions *session.Manager
	service  *session.Service
	options  *listing.Options
	allowed  map[int64]bool
	maxPhoto int64
	now      func() time.Time

	// background tracks extraction and generation goroutines.
	background sync.WaitGroup
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, sessions *session.Manager, service *session.Service, cfg Config) *Bot {
	b := &Bot{
		tg:       tg,
		sessions: sessions,
		service:  service,
		options:  listing.DefaultOptions(),
		allowed:  make(map[int64]bool, len(cfg.AllowedIDs)),
		maxPhoto: cfg.MaxPhotoBytes,
		now:      time.Now,
	}
	if b.maxPhoto <= 0 {
		b.maxPhoto = DefaultMaxPhotoBytes
	}
	for _, id := range cfg.AllowedIDs {
		b.allowed[id] = true
	}
	if len(b.allowed) == 0 {
		log.Warn().Msg("TELEGRAM_ALLOWED_IDS is empty, the bot answers everyone")
	}
	b.state = b.NewBotState()
	return b
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context, poller Poller) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := poller.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.state.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			poller.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			b.background.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				b.background.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate dispatches an update to the chat's session worker.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID]
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	// Checked before a session is created so unknown ids cost nothing.
	if !b.isAllowed(message.From.ID) {
		log.Debug().Int64("userId", message.From.ID).Msg("dropped message from user not in allow list")
		return
	}

	chatID := message.From.ID
	if message.Chat != nil {
		chatID = message.Chat.ID
	}
	us := b.state.getUserSession(chatID)

	msg := SessionMessage{Type: msgText, Ctx: ctx, Message: message}
	if len(message.Photo) > 0 {
		msg.Type = msgPhoto
	}
	log.Info().Int64("chatId", chatID).Str("type", msg.Type).Str("text", message.Text).Msg("got message")

	if sync {
		us.SendSync(msg)
	} else {
		us.Send(msg)
	}
}

// HandleSessionMessage implements MessageHandler. It runs on the worker.
func (b *Bot) HandleSessionMessage(ctx context.Context, us *UserSession, msg SessionMessage) {
	sess := b.sessions.GetOrCreate(us.key)
	switch msg.Type {
	case msgPhoto:
		b.handlePhoto(ctx, us, sess, msg.Message)
	case msgText:
		b.handleText(ctx, us, sess, msg.Message.Text)
	case msgExtractDone:
		b.handleExtractDone(us, msg.Outcome)
	case msgGenerateDone:
		b.handleGenerateDone(us, msg.Outcome)
	}
}

// goBackground runs fn off the worker and reports its outcome through the
// inbox.
func (b *Bot) goBackground(ctx context.Context, us *UserSession, kind string, fn func(ctx context.Context) CallOutcome) {
	b.background.Add(1)
	go func() {
		defer b.background.Done()

		typingCtx, stopTyping := context.WithCancel(ctx)
		go us.startTypingLoop(typingCtx)
		outcome := fn(ctx)
		stopTyping()

		us.Send(SessionMessage{Type: kind, Ctx: ctx, Outcome: &outcome})
	}()
}
