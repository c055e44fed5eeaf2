package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command defines a bot command with its Telegram menu description.
type Command struct {
	Name        string // Command name without slash (e.g., "start")
	Description string
}

// botCommands defines all available bot commands.
var botCommands = []Command{
	{Name: "auto", Description: "Describe an auto part"},
	{Name: "general", Description: "Describe a general item"},
	{Name: "set", Description: "Set a field: /set <field> <value>"},
	{Name: "show", Description: "Show the current item"},
	{Name: "photos", Description: "List photos"},
	{Name: "removephoto", Description: "Remove a photo: /removephoto <n>"},
	{Name: "scan", Description: "Read text from the latest photo"},
	{Name: "generate", Description: "Write the listings"},
	{Name: "reset", Description: "Start over"},
	{Name: "help", Description: "Show help"},
}

// Requester sends non-message requests to Telegram.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RegisterCommands sets the bot's command menu in Telegram.
// This should be called once at startup.
func RegisterCommands(tg Requester) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
