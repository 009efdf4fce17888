// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the bot configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	HTTPAddr         string
	DigestInterval   time.Duration
	Client           Client
}

// Client holds the settings shared by every process that searches the store.
type Client struct {
	StoreBaseURL     string
	FollowersBaseURL string
	Country          string
	Language         string
	RequestTimeout   time.Duration
	SearchCooldown   time.Duration
	EnrichWorkers    int
	TagsFile         string
}

// Load reads the bot configuration from environment variables. A .env file
// in the working directory is read first; it never overrides set variables.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	digest, err := envDuration("DIGEST_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	client, err := loadClient()
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		DigestInterval:   digest,
		Client:           client,
	}, nil
}

// LoadClient reads only the search settings. It does not require a bot token.
func LoadClient() (*Client, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c, err := loadClient()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func loadClient() (Client, error) {
	timeout, err := envDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return Client{}, err
	}
	cooldown, err := envDuration("SEARCH_COOLDOWN", 3*time.Second)
	if err != nil {
		return Client{}, err
	}
	workers := 8
	if raw := os.Getenv("ENRICH_WORKERS"); raw != "" {
		workers, err = strconv.Atoi(raw)
		if err != nil || workers <= 0 {
			return Client{}, fmt.Errorf("invalid ENRICH_WORKERS %q: must be a positive integer", raw)
		}
	}

	return Client{
		StoreBaseURL:     envOrDefault("STORE_BASE_URL", "https://store.steampowered.com"),
		FollowersBaseURL: envOrDefault("FOLLOWERS_BASE_URL", "https://games-popularity.com"),
		Country:          envOrDefault("STORE_COUNTRY", "JP"),
		Language:         envOrDefault("STORE_LANGUAGE", "japanese"),
		RequestTimeout:   timeout,
		SearchCooldown:   cooldown,
		EnrichWorkers:    workers,
		TagsFile:         os.Getenv("TAGS_FILE"),
	}, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
