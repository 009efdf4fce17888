// Package storage persists per-chat search preferences.
package storage

import (
	"context"
	"time"

	"arcana_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// GetSettings returns the settings of chatID, or the defaults if the chat
	// never saved any.
	GetSettings(ctx context.Context, chatID int64) (*model.ChatSettings, error)
	SaveSettings(ctx context.Context, s *model.ChatSettings) error

	// ListDueDigests returns chats with the digest enabled whose last digest
	// is older than every, as of now.
	ListDueDigests(ctx context.Context, now time.Time, every time.Duration) ([]model.ChatSettings, error)
	MarkDigestSent(ctx context.Context, chatID int64, at time.Time) error

	Close() error
}
