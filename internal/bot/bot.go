// Package bot is the Telegram presentation layer: it stores chat preferences,
// runs searches and renders the results.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"arcana_bot/internal/config"
	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/news"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/storage"
	"arcana_bot/internal/tags"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Discoverer runs one search pipeline.
type Discoverer interface {
	Discover(ctx context.Context, sess *session.Session, req search.Request, progress enrich.ProgressFunc) (discovery.Result, error)
}

// NewsSource returns recent headlines of an app.
type NewsSource interface {
	Latest(ctx context.Context, appID int64, n int) ([]news.Headline, error)
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Store    storage.Storage
	Discover Discoverer
	Tags     *tags.Index
	Sessions *session.Registry
	News     NewsSource
}

// Bot is the Telegram bot that handles user commands and sends results.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	cfg      *config.Config
	discover Discoverer
	tags     *tags.Index
	sessions *session.Registry
	news     NewsSource
	log      *slog.Logger

	// pause separates consecutive messages of one reply.
	pause time.Duration

	// searches tracks searches running outside the update loop.
	searches sync.WaitGroup
}

// New creates a Bot with the given Telegram token.
func New(token string, deps Deps, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		store:    deps.Store,
		cfg:      cfg,
		discover: deps.Discover,
		tags:     deps.Tags,
		sessions: deps.Sessions,
		news:     deps.News,
		log:      log,
		pause:    300 * time.Millisecond,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled and
// every running search has returned. Searches run in their own goroutines; a
// repeat from the same chat is rejected by the session cooldown, not queued.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.searches.Wait()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// SendDigest delivers a scheduled search result to a chat.
func (b *Bot) SendDigest(chatID int64, res discovery.Result) {
	b.sendResult(chatID, "Your digest", res)
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "tags":
		b.handleTags(chatID)
	case "include":
		b.handleTagList(ctx, chatID, args, true)
	case "exclude":
		b.handleTagList(ctx, chatID, args, false)
	case "clear":
		b.handleClear(ctx, chatID)
	case cmdMode:
		b.handleMode(ctx, chatID, args)
	case cmdLang:
		b.handleLang(ctx, chatID, args)
	case cmdLimit:
		b.handleLimit(ctx, chatID, args)
	case "digest":
		b.handleDigest(ctx, chatID, args)
	case "settings":
		b.handleSettings(ctx, chatID)
	case cmdSearch:
		b.startSearch(ctx, chatID)
	case "news":
		b.handleNews(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
