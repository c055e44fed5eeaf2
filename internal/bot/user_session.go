package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/rs/zerolog/log"
)

// Session message types.
const (
	msgText         = "text"
	msgPhoto        = "photo"
	msgExtractDone  = "extract_done"
	msgGenerateDone = "generate_done"
)

// SessionMessage is a unit of work for the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	Message *tgbotapi.Message
	Text    string

	// Outcome of a background extraction or generation.
	Outcome *CallOutcome
}

// CallOutcome is reported back to the worker when a background call ends.
type CallOutcome struct {
	Text   string
	Result *listing.Result
	Err    error
}

// MessageSender abstracts the ability to send Telegram messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler processes session messages on the worker goroutine.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession is the Telegram side of one chat. Each session has a worker
// goroutine that handles its messages in order. The listing state itself
// lives in a session.Session looked up by key, so the worker never holds it
// across messages.
type UserSession struct {
	chatID int64
	key    string
	sender MessageSender

	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler
}

// sessionKey is the session manager key for a chat.
func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func newUserSession(chatID int64, sender MessageSender, handler MessageHandler) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &UserSession{
		chatID:  chatID,
		key:     sessionKey(chatID),
		sender:  sender,
		inbox:   make(chan SessionMessage, 10), // Buffered to avoid blocking
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
	}
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Err(err).Int64("chatId", s.chatID).Send()
	return s.reply(MsgUnexpectedErr, escapeMarkdown(err.Error()))
}

// sendTypingAction sends a "typing" chat action to show the user that the bot is processing.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping)
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	if _, err := s.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("chatId", s.chatID).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until ctx is done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.chatID
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().
			Int64("chatId", s.chatID).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("chatId", s.chatID).Int("messageId", sent.MessageID).Msg("sent message")
	}
	return sent
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	return s.replyWithMessage(msg)
}

// replyHTML sends text that is already HTML escaped.
func (s *UserSession) replyHTML(text string) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeHTML,
	})
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("chatId", s.chatID).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("chatId", s.chatID).Msg("session handler not set")
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message for processing by the worker without waiting.
func (s *UserSession) Send(msg SessionMessage) {
	if s.ctx.Err() != nil {
		if msg.Done != nil {
			close(msg.Done)
		}
		return
	}
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
