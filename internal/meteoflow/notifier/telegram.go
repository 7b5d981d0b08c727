package notifier

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// TelegramSender delivers summaries through the Telegram bot API. Recipients
// are every distinct chat that has messaged the bot.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	logger log.Logger
}

var _ Sender = (*TelegramSender)(nil)

// NewTelegram authenticates the bot. An empty token returns (nil, nil) so
// callers can wire an unconfigured channel without special-casing.
func NewTelegram(token string, logger log.Logger) (*TelegramSender, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errno.ErrNotification.Wrap(err)
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Infow("Telegram bot authenticated", "username", bot.Self.UserName)
	return &TelegramSender{bot: bot, logger: logger}, nil
}

// ChatIDs collects the distinct chats seen in the bot's update backlog.
func (t *TelegramSender) ChatIDs(ctx context.Context) ([]int64, error) {
	updates, err := t.bot.GetUpdates(tgbotapi.NewUpdate(0))
	if err != nil {
		return nil, errno.ErrNotification.WithMessage("get updates").Wrap(err)
	}

	seen := make(map[int64]struct{})
	for _, update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		seen[update.Message.Chat.ID] = struct{}{}
	}

	chatIDs := make([]int64, 0, len(seen))
	for id := range seen {
		chatIDs = append(chatIDs, id)
	}
	t.logger.Infow("Resolved notification chats", "count", len(chatIDs))
	return chatIDs, nil
}

// Send pushes one text message to a chat.
func (t *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return errno.ErrNotification.WithMessage("send to chat %d", chatID).Wrap(err)
	}
	return nil
}
