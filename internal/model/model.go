// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"time"
)

// Mode selects the exploration strategy of a search.
type Mode string

// Supported search modes.
const (
	ModeLatest  Mode = "latest"
	ModeFuture  Mode = "future"
	ModeArchive Mode = "archive"
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLatest, ModeFuture, ModeArchive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q, use: latest, future, archive", s)
}

// SearchFilter is the resolved filter set applied to one search.
// Exclude always wins over Include when both contain the same id.
// A nil MaxReviews disables the review threshold; zero keeps only items
// without reviews.
type SearchFilter struct {
	Include      []int
	Exclude      []int
	MaxReviews   *int
	JapaneseOnly bool
	Mode         Mode
	PrimaryOnly  bool
}

// Threshold returns a review threshold of n for SearchFilter.MaxReviews.
func Threshold(n int) *int {
	return &n
}

// Label is a human-facing classification of a listing.
type Label string

// Attention labels for released items.
const (
	LabelUnopenedChest  Label = "UNOPENED_CHEST"
	LabelBronzeChest    Label = "BRONZE_CHEST"
	LabelSilverChest    Label = "SILVER_CHEST"
	LabelGoldChest      Label = "GOLD_CHEST"
	LabelLegendaryChest Label = "LEGENDARY_CHEST"
	LabelBalanceChest   Label = "BALANCE_CHEST"
	LabelDemonChest     Label = "DEMON_CHEST"
	LabelHiddenGem      Label = "HIDDEN_GEM"
	LabelSprout         Label = "SPROUT"
)

// Expectation labels for upcoming items.
const (
	LabelStarTower   Label = "STAR_TOWER"
	LabelMoonTower   Label = "MOON_TOWER"
	LabelSunTower    Label = "SUN_TOWER"
	LabelNayutaTower Label = "NAYUTA_TOWER"
)

// Listing is one storefront search result. Pointer fields are optional and nil
// when absent. A Listing is not modified after enrichment.
type Listing struct {
	AppID       *int64  `json:"app_id,omitempty"`
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	Image       *string `json:"image,omitempty"`
	Price       string  `json:"price"`
	Reviews     int     `json:"reviews"`
	Sentiment   string  `json:"sentiment"`
	ReleaseDate string  `json:"release_date"`
	Upcoming    bool    `json:"upcoming"`
	Label       Label   `json:"label"`

	Enriched          bool     `json:"enriched"`
	JapaneseSupported bool     `json:"japanese_supported"`
	Description       string   `json:"description,omitempty"`
	VideoURL          *string  `json:"video_url,omitempty"`
	VideoThumbnail    *string  `json:"video_thumbnail,omitempty"`
	Screenshots       []string `json:"screenshots,omitempty"`
	Followers         *int     `json:"followers,omitempty"`
	HasDemo           *bool    `json:"has_demo,omitempty"`
}

// Key identifies a listing within a result batch.
func (l Listing) Key() string {
	if l.AppID != nil {
		return fmt.Sprintf("app:%d", *l.AppID)
	}
	return "link:" + l.Link
}

// ReviewLimit is a named review threshold preset.
type ReviewLimit string

// Supported review limit presets.
const (
	ReviewLimitFew    ReviewLimit = "few"
	ReviewLimitNormal ReviewLimit = "normal"
	ReviewLimitMany   ReviewLimit = "many"
	ReviewLimitAny    ReviewLimit = "any"
)

// ParseReviewLimit converts user input into a ReviewLimit.
func ParseReviewLimit(s string) (ReviewLimit, error) {
	switch ReviewLimit(s) {
	case ReviewLimitFew, ReviewLimitNormal, ReviewLimitMany, ReviewLimitAny:
		return ReviewLimit(s), nil
	}
	return "", fmt.Errorf("unknown limit %q, use: few, normal, many, any", s)
}

// Max returns the maximum review count allowed by the preset.
func (r ReviewLimit) Max() int {
	switch r {
	case ReviewLimitFew:
		return 50
	case ReviewLimitNormal:
		return 500
	case ReviewLimitMany:
		return 5000
	default:
		return 500000
	}
}

// ChatSettings holds the search preferences of one chat. When Digest is set
// the chat receives a scheduled search with these preferences.
type ChatSettings struct {
	ChatID       int64
	Mode         Mode
	IncludeTags  []string
	ExcludeTags  []string
	JapaneseOnly bool
	ReviewLimit  ReviewLimit
	Digest       bool
	LastDigestAt *time.Time
	UpdatedAt    time.Time
}

// DefaultSettings returns the preferences of a chat that never changed them.
func DefaultSettings(chatID int64) ChatSettings {
	return ChatSettings{
		ChatID:       chatID,
		Mode:         ModeLatest,
		JapaneseOnly: true,
		ReviewLimit:  ReviewLimitAny,
	}
}
