package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"arcana_bot/internal/discovery"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
)

const newsCount = 5

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Arcana Bot!

I dig through the store for indie games matching your taste.

Quick start:
1. /tags — see the tag catalogue
2. /include Roguelike, Deckbuilder — pick tags you like
3. /search — open a chest

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Search settings:
/tags — list available tags
/include <tags> — add comma-separated tags to match
/exclude <tags> — add comma-separated tags to avoid
/clear — remove all tag filters
/mode latest|future|archive — what to search
/lang jp|all — Japanese-supported games only, or all
/limit few|normal|many|any — maximum review count
/settings — show current settings

Search:
/search — run a search with your settings
/news <app id> — latest news of a game
/digest on|off — receive a scheduled search

Modes: latest = newest releases, future = upcoming games, archive = random treasure hunt through older releases.`)
}

func (b *Bot) handleTags(chatID int64) {
	for _, text := range Chunk([]string{FormatTags(b.tags.Categories())}, MaxMessageLength) {
		b.reply(chatID, text)
	}
}

// loadSettings returns the chat settings, replying with an error on failure.
func (b *Bot) loadSettings(ctx context.Context, chatID int64) (*model.ChatSettings, bool) {
	cs, err := b.store.GetSettings(ctx, chatID)
	if err != nil {
		b.log.Error("get settings", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to load your settings, please try again.")
		return nil, false
	}
	return cs, true
}

func (b *Bot) saveSettings(ctx context.Context, cs *model.ChatSettings) bool {
	if err := b.store.SaveSettings(ctx, cs); err != nil {
		b.log.Error("save settings", "chat_id", cs.ChatID, "error", err)
		b.reply(cs.ChatID, "Failed to save your settings, please try again.")
		return false
	}
	return true
}

func (b *Bot) handleTagList(ctx context.Context, chatID int64, args string, include bool) {
	cmd := "exclude"
	if include {
		cmd = "include"
	}
	if args == "" {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <tag>, <tag>...\nSee /tags for names.", cmd))
		return
	}

	known, unknown := ParseTagArgs(b.tags, args)
	if len(known) == 0 {
		b.reply(chatID, fmt.Sprintf("Unknown tags: %s\nSee /tags for names.", strings.Join(unknown, ", ")))
		return
	}

	cs, ok := b.loadSettings(ctx, chatID)
	if !ok {
		return
	}
	if include {
		cs.IncludeTags = append(removeAll(cs.IncludeTags, known), known...)
		cs.ExcludeTags = removeAll(cs.ExcludeTags, known)
	} else {
		cs.ExcludeTags = append(removeAll(cs.ExcludeTags, known), known...)
		cs.IncludeTags = removeAll(cs.IncludeTags, known)
	}
	if !b.saveSettings(ctx, cs) {
		return
	}

	text := fmt.Sprintf("Include: %s\nExclude: %s", listOrNone(cs.IncludeTags), listOrNone(cs.ExcludeTags))
	if len(unknown) > 0 {
		text += fmt.Sprintf("\n\nIgnored unknown tags: %s", strings.Join(unknown, ", "))
	}
	b.reply(chatID, text)
}

func (b *Bot) handleClear(ctx context.Context, chatID int64) {
	cs, ok := b.loadSettings(ctx, chatID)
	if !ok {
		return
	}
	cs.IncludeTags, cs.ExcludeTags = nil, nil
	if b.saveSettings(ctx, cs) {
		b.reply(chatID, "Tag filters cleared.")
	}
}

func (b *Bot) handleMode(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.sendChoice(chatID, "Choose a search mode:", cmdMode, []string{
			string(model.ModeLatest), string(model.ModeFuture), string(model.ModeArchive),
		})
		return
	}
	mode, err := parseMode(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.updateSettings(ctx, chatID, func(cs *model.ChatSettings) { cs.Mode = mode },
		fmt.Sprintf("Mode set to %s.", mode))
}

func (b *Bot) handleLang(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.sendChoice(chatID, "Which games should I show?", cmdLang, []string{"jp", "all"})
		return
	}
	jp, err := ParseLang(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	text := "Showing games with Japanese support only."
	if !jp {
		text = "Showing games in all languages."
	}
	b.updateSettings(ctx, chatID, func(cs *model.ChatSettings) { cs.JapaneseOnly = jp }, text)
}

func (b *Bot) handleLimit(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.sendChoice(chatID, "Maximum number of reviews:", cmdLimit, []string{
			string(model.ReviewLimitFew), string(model.ReviewLimitNormal),
			string(model.ReviewLimitMany), string(model.ReviewLimitAny),
		})
		return
	}
	limit, err := parseLimit(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.updateSettings(ctx, chatID, func(cs *model.ChatSettings) { cs.ReviewLimit = limit },
		fmt.Sprintf("Review limit set to %s (up to %d reviews).", limit, limit.Max()))
}

func (b *Bot) handleDigest(ctx context.Context, chatID int64, args string) {
	on, err := ParseOnOff(args)
	if err != nil {
		b.reply(chatID, "Usage: /digest on|off")
		return
	}
	text := "Digest disabled."
	if on {
		text = "Digest enabled. I will run your search periodically and send what I find."
	}
	b.updateSettings(ctx, chatID, func(cs *model.ChatSettings) { cs.Digest = on }, text)
}

func (b *Bot) updateSettings(ctx context.Context, chatID int64, apply func(*model.ChatSettings), confirm string) {
	cs, ok := b.loadSettings(ctx, chatID)
	if !ok {
		return
	}
	apply(cs)
	if b.saveSettings(ctx, cs) {
		b.reply(chatID, confirm)
	}
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) {
	cs, ok := b.loadSettings(ctx, chatID)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatSettings(cs))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Search", cmdSearch),
			tgbotapi.NewInlineKeyboardButtonData("Mode", cmdMode+":"),
			tgbotapi.NewInlineKeyboardButtonData("Language", cmdLang+":"),
			tgbotapi.NewInlineKeyboardButtonData("Limit", cmdLimit+":"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send settings", "error", err)
	}
}

func (b *Bot) startSearch(ctx context.Context, chatID int64) {
	b.searches.Add(1)
	go func() {
		defer b.searches.Done()
		b.handleSearch(ctx, chatID)
	}()
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64) {
	cs, ok := b.loadSettings(ctx, chatID)
	if !ok {
		return
	}

	sess := b.sessions.Get(fmt.Sprintf("chat:%d", chatID))
	res, err := b.discover.Discover(ctx, sess, search.FromSettings(*cs), func(done, total int) {
		b.log.Debug("enrich progress", "chat_id", chatID, "done", done, "total", total)
	})

	var ce *session.CooldownError
	switch {
	case errors.As(err, &ce):
		b.reply(chatID, fmt.Sprintf("Please wait %d seconds before searching again.", ce.Seconds()))
		return
	case err != nil:
		b.log.Error("search", "chat_id", chatID, "error", err)
		b.reply(chatID, "Search failed, please try again later.")
		return
	case res.Empty():
		b.reply(chatID, "No matches. Try fewer tags, another mode or a higher review limit.")
		return
	}

	b.sendResult(chatID, "Search results", res)
}

func (b *Bot) sendResult(chatID int64, title string, res discovery.Result) {
	parts := make([]string, 0, len(res.Listings)+1)
	parts = append(parts, FormatHeader(title, res))
	for _, l := range res.Listings {
		parts = append(parts, FormatListing(l))
	}

	for i, text := range Chunk(parts, MaxMessageLength) {
		if i > 0 {
			time.Sleep(b.pause)
		}
		b.reply(chatID, text)
	}
}

func (b *Bot) handleNews(ctx context.Context, chatID int64, args string) {
	id, err := ParseAppID(args)
	if err != nil {
		b.reply(chatID, "Usage: /news <app id or store link>")
		return
	}

	headlines, err := b.news.Latest(ctx, id, newsCount)
	if err != nil {
		b.log.Error("news", "app_id", id, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to fetch news for app %d.", id))
		return
	}
	b.reply(chatID, FormatNews(id, headlines))
}

func (b *Bot) sendChoice(chatID int64, prompt, action string, options []string) {
	row := make([]tgbotapi.InlineKeyboardButton, len(options))
	for i, o := range options {
		row[i] = tgbotapi.NewInlineKeyboardButtonData(o, action+":"+o)
	}
	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send choice", "action", action, "error", err)
	}
}
