// Package notify posts publish summaries to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"crosspost/internal/logging"
	"crosspost/internal/model"
)

// TelegramNotifier sends one summary message per publish operation.
// Notification failures are logged and never affect publish results.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logging.Logger
}

func NewTelegram(token string, chatID int64, log *logging.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

func (n *TelegramNotifier) NotifyResults(_ context.Context, meta model.PublishMetadata, results map[model.Platform]model.PublishResult) {
	msg := tgbotapi.NewMessage(n.chatID, formatSummary(meta, results))
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Errorf("telegram notify: %v", err)
	}
}

func formatSummary(meta model.PublishMetadata, results map[model.Platform]model.PublishResult) string {
	platforms := make([]string, 0, len(results))
	for p := range results {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)

	var b strings.Builder
	fmt.Fprintf(&b, "Publish %q\n", meta.Title)
	for _, p := range platforms {
		r := results[model.Platform(p)]
		switch r.Outcome {
		case model.OutcomeSuccess:
			if r.RemoteID != "" {
				fmt.Fprintf(&b, "✅ %s (%s)\n", p, r.RemoteID)
			} else {
				fmt.Fprintf(&b, "✅ %s\n", p)
			}
		case model.OutcomeAuthRequired:
			fmt.Fprintf(&b, "🔑 %s: login required\n", p)
		default:
			fmt.Fprintf(&b, "❌ %s: %s\n", p, r.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
