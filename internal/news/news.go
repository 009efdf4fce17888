// Package news reads the per-app news feed of the store.
package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"arcana_bot/internal/steam"
)

// Headline is one news post of an app.
type Headline struct {
	Title     string
	Link      string
	Published *time.Time
	Summary   string
}

// Fetcher downloads and parses app news feeds.
type Fetcher struct {
	client  steam.HTTPClient
	baseURL string
}

// New creates a Fetcher against the store at baseURL.
func New(client steam.HTTPClient, baseURL string) *Fetcher {
	return &Fetcher{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FeedURL returns the news feed address of an app.
func (f *Fetcher) FeedURL(appID int64) string {
	return fmt.Sprintf("%s/feeds/news/app/%d/", f.baseURL, appID)
}

// Latest returns up to n most recent headlines of an app, newest first.
func (f *Fetcher) Latest(ctx context.Context, appID int64, n int) ([]Headline, error) {
	body, status, err := steam.Fetch(ctx, f.client, "news", f.FeedURL(appID))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("news: unexpected status %d", status)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []Headline
	for _, item := range feed.Items {
		if len(out) == n {
			break
		}
		out = append(out, Headline{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			Published: item.PublishedParsed,
			Summary:   summarize(item.Description),
		})
	}
	return out, nil
}

const maxSummary = 200

// summarize strips markup from a feed description and shortens it.
func summarize(html string) string {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > maxSummary {
		text = string(runes[:maxSummary-1]) + "…"
	}
	return text
}
