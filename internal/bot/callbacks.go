package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdMode   = "mode"
	cmdLang   = "lang"
	cmdLimit  = "limit"
	cmdSearch = "search"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	// Callbacks from inline-mode messages carry no chat.
	if cb.Message == nil || cb.Message.Chat == nil {
		b.log.Debug("callback without message", "data", cb.Data)
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID

	action, value, _ := strings.Cut(data, ":")

	b.log.Info("callback",
		"action", action,
		"value", value,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdMode:
		b.handleMode(ctx, chatID, value)
	case cmdLang:
		b.handleLang(ctx, chatID, value)
	case cmdLimit:
		b.handleLimit(ctx, chatID, value)
	case cmdSearch:
		b.startSearch(ctx, chatID)
	}
}
