package chime

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chimeText is the remote rendition of each chime.
var chimeText = map[Key]string{
	Green:  "🟢 sell zone: price crossed above green",
	Cyan:   "🔵 sell zone: price crossed above cyan",
	Orange: "🟠 buy zone: price dropped below orange",
	Red:    "🔴 buy zone: price dropped below red",
}

// TelegramSink mirrors chimes to a Telegram chat, for catching alerts away
// from the terminal.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ Sink = (*TelegramSink)(nil)

// NewTelegramSink creates a sink posting to the given chat.
func NewTelegramSink(botToken, chatID string) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: id}, nil
}

// Emit posts the chime message.
func (s *TelegramSink) Emit(key Key) error {
	text, ok := chimeText[key]
	if !ok {
		text = string(key)
	}
	_, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text))
	return err
}
