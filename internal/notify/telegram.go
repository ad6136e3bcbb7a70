// Package notify sends operator notifications over Telegram. The
// notifier is optional: without credentials every method is a no-op, so
// callers never branch on configuration.
package notify

import (
	"fmt"
	"path/filepath"
	"strings"

	"crefeed/internal/poster"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New builds a Notifier. An empty token or failed bot init yields a
// disabled notifier rather than an error.
func New(token string, chatID int64) *Notifier {
	if token == "" || chatID == 0 {
		return &Notifier{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn().Err(err).Msg("telegram notifier disabled")
		return &Notifier{}
	}
	return &Notifier{bot: bot, chatID: chatID}
}

// Enabled reports whether notifications will actually be sent.
func (n *Notifier) Enabled() bool { return n.bot != nil }

// ReviewRequested announces a freshly queued record awaiting manual
// review.
func (n *Notifier) ReviewRequested(title, path string) {
	n.send(fmt.Sprintf("📋 *Content queued for review*\n\n%s\n\nFile: %s", title, filepath.Base(path)))
}

// PostedSummary reports the per-platform outcome of an automatic post.
func (n *Notifier) PostedSummary(title string, results map[string]poster.PostResult) {
	var lines []string
	for platform, result := range results {
		if result.Success {
			lines = append(lines, fmt.Sprintf("✅ %s: %s", platform, result.PostID))
		} else {
			lines = append(lines, fmt.Sprintf("❌ %s: %s", platform, result.ErrorMessage))
		}
	}
	n.send(fmt.Sprintf("📤 *Posted: %s*\n\n%s", title, strings.Join(lines, "\n")))
}

func (n *Notifier) send(text string) {
	if n.bot == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		log.Warn().Err(err).Msg("failed to send telegram notification")
	}
}
