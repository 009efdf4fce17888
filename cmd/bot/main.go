package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"arcana_bot/internal/api"
	"arcana_bot/internal/bot"
	"arcana_bot/internal/config"
	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/metrics"
	"arcana_bot/internal/news"
	"arcana_bot/internal/scheduler"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/steam"
	"arcana_bot/internal/storage"
	"arcana_bot/internal/tags"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	metrics.Register()

	idx, err := loadTags(cfg.Client.TagsFile)
	if err != nil {
		log.Error("load tags", "file", cfg.Client.TagsFile, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	httpClient := steam.NewHTTPClient(cfg.Client.RequestTimeout)
	client := steam.New(httpClient, steam.Options{
		StoreBaseURL:     cfg.Client.StoreBaseURL,
		FollowersBaseURL: cfg.Client.FollowersBaseURL,
		Country:          cfg.Client.Country,
		Language:         cfg.Client.Language,
	})
	details, err := steam.NewCachedDetails(client, steam.DefaultCacheSize)
	if err != nil {
		log.Error("create cache", "error", err)
		os.Exit(1)
	}
	followers, err := steam.NewCachedFollowers(client, steam.DefaultCacheSize)
	if err != nil {
		log.Error("create cache", "error", err)
		os.Exit(1)
	}

	sessions, err := session.NewRegistry(session.DefaultRegistrySize)
	if err != nil {
		log.Error("create session registry", "error", err)
		os.Exit(1)
	}

	orchestrator := search.New(client, idx, session.Gate{Cooldown: cfg.Client.SearchCooldown}, log)
	svc := discovery.New(orchestrator, enrich.New(details, followers, cfg.Client.EnrichWorkers, log))

	b, err := bot.New(cfg.TelegramBotToken, bot.Deps{
		Store:    store,
		Discover: svc,
		Tags:     idx,
		Sessions: sessions,
		News:     news.New(httpClient, cfg.Client.StoreBaseURL),
	}, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, svc, b, cfg.DigestInterval, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(svc, idx, sessions, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	log.Info("starting bot", "tags", len(idx.Names()), "digest_interval", cfg.DigestInterval)

	go sched.Run(ctx)

	b.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown http server", "error", err)
	}

	log.Info("bot stopped")
}

func loadTags(path string) (*tags.Index, error) {
	if path == "" {
		return tags.Default()
	}
	return tags.LoadFile(path)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
