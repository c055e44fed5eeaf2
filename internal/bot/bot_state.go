package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// BotState holds one UserSession per chat.
type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*UserSession
}

func (b *Bot) NewBotState() *BotState {
	return &BotState{
		bot:      b,
		sessions: make(map[int64]*UserSession),
	}
}

func (bs *BotState) getUserSession(chatID int64) *UserSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if session, ok := bs.sessions[chatID]; ok {
		return session
	}
	session := newUserSession(chatID, bs.bot.tg, bs.bot)
	session.StartWorker()
	bs.sessions[chatID] = session
	log.Info().Int64("chatId", chatID).Msg("new user session created")
	return session
}

// Shutdown stops all session workers gracefully.
func (bs *BotState) Shutdown() {
	bs.mu.Lock()
	sessions := make([]*UserSession, 0, len(bs.sessions))
	for _, session := range bs.sessions {
		sessions = append(sessions, session)
	}
	bs.mu.Unlock()

	// Stop all workers (outside the lock to avoid blocking)
	for _, session := range sessions {
		session.Stop()
	}
	log.Info().Int("count", len(sessions)).Msg("stopped all session workers")
}
