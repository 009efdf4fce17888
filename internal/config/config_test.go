package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL", "ALLOWED_USERS", "HTTP_ADDR",
	"DIGEST_INTERVAL", "REQUEST_TIMEOUT", "SEARCH_COOLDOWN", "ENRICH_WORKERS",
	"STORE_BASE_URL", "FOLLOWERS_BASE_URL", "STORE_COUNTRY", "STORE_LANGUAGE", "TAGS_FILE",
}

var defaultClient = Client{
	StoreBaseURL:     "https://store.steampowered.com",
	FollowersBaseURL: "https://games-popularity.com",
	Country:          "JP",
	Language:         "japanese",
	RequestTimeout:   10 * time.Second,
	SearchCooldown:   3 * time.Second,
	EnrichWorkers:    8,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: &Config{
				TelegramBotToken: "test-token",
				DatabasePath:     "./data/bot.db",
				LogLevel:         "info",
				AllowedUsers:     nil,
				HTTPAddr:         ":8080",
				DigestInterval:   24 * time.Hour,
				Client:           defaultClient,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"DATABASE_PATH":      "/tmp/bot.db",
				"LOG_LEVEL":          "debug",
				"ALLOWED_USERS":      "111,222,333",
				"HTTP_ADDR":          "127.0.0.1:9090",
				"DIGEST_INTERVAL":    "12h",
				"REQUEST_TIMEOUT":    "5s",
				"SEARCH_COOLDOWN":    "10s",
				"ENRICH_WORKERS":     "4",
				"STORE_COUNTRY":      "US",
				"STORE_LANGUAGE":     "english",
				"TAGS_FILE":          "/etc/arcana/tags.yaml",
			},
			want: &Config{
				TelegramBotToken: "tok",
				DatabasePath:     "/tmp/bot.db",
				LogLevel:         "debug",
				AllowedUsers:     []int64{111, 222, 333},
				HTTPAddr:         "127.0.0.1:9090",
				DigestInterval:   12 * time.Hour,
				Client: Client{
					StoreBaseURL:     "https://store.steampowered.com",
					FollowersBaseURL: "https://games-popularity.com",
					Country:          "US",
					Language:         "english",
					RequestTimeout:   5 * time.Second,
					SearchCooldown:   10 * time.Second,
					EnrichWorkers:    4,
					TagsFile:         "/etc/arcana/tags.yaml",
				},
			},
		},
		{
			name: "allowed users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: &Config{
				TelegramBotToken: "tok",
				DatabasePath:     "./data/bot.db",
				LogLevel:         "info",
				AllowedUsers:     []int64{10, 20},
				HTTPAddr:         ":8080",
				DigestInterval:   24 * time.Hour,
				Client:           defaultClient,
			},
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      "123,abc",
			},
			wantErr: true,
		},
		{
			name: "invalid cooldown",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"SEARCH_COOLDOWN":    "three seconds",
			},
			wantErr: true,
		},
		{
			name: "zero workers",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ENRICH_WORKERS":     "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadClientWithoutToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BASE_URL", "http://localhost:9999")

	got, err := LoadClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := defaultClient
	want.StoreBaseURL = "http://localhost:9999"
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("LoadClient() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
