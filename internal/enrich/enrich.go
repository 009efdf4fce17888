// Package enrich merges per-app details into search listings using a bounded
// pool of concurrent fetches.
package enrich

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arcana_bot/internal/classify"
	"arcana_bot/internal/metrics"
	"arcana_bot/internal/model"
	"arcana_bot/internal/steam"
)

// DefaultWorkers is the number of concurrent detail fetches.
const DefaultWorkers = 8

// MaxScreenshots bounds the screenshots kept per listing.
const MaxScreenshots = 5

var kana = regexp.MustCompile(`[ぁ-んァ-ン]`)

// DetailSource fetches app details.
type DetailSource interface {
	AppDetails(ctx context.Context, appID int64) (steam.Detail, error)
}

// FollowerSource fetches follower counts.
type FollowerSource interface {
	Followers(ctx context.Context, appID int64) (int, error)
}

// ProgressFunc is called after each listing completes.
type ProgressFunc func(done, total int)

// Coordinator enriches listings.
type Coordinator struct {
	details   DetailSource
	followers FollowerSource
	workers   int
	log       *slog.Logger
}

// New creates a Coordinator. A non-positive workers value uses DefaultWorkers.
func New(details DetailSource, followers FollowerSource, workers int, log *slog.Logger) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Coordinator{details: details, followers: followers, workers: workers, log: log}
}

// Enrich returns a copy of listings with details merged in, in input order.
func (c *Coordinator) Enrich(ctx context.Context, listings []model.Listing) []model.Listing {
	return c.EnrichWithProgress(ctx, listings, nil)
}

// EnrichWithProgress is Enrich with a completion callback. progress calls are
// serialized and done increases by one each call.
func (c *Coordinator) EnrichWithProgress(ctx context.Context, listings []model.Listing, progress ProgressFunc) []model.Listing {
	start := time.Now()
	defer func() { metrics.EnrichDuration.Observe(time.Since(start).Seconds()) }()

	out := make([]model.Listing, len(listings))
	total := len(listings)

	var (
		mu   sync.Mutex
		done int
	)
	report := func() {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(done, total)
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, l := range listings {
		g.Go(func() error {
			out[i] = c.one(ctx, l)
			report()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *Coordinator) one(ctx context.Context, l model.Listing) model.Listing {
	if l.AppID == nil {
		return l
	}
	id := *l.AppID

	d, err := c.details.AppDetails(ctx, id)
	if err != nil {
		c.log.Warn("app details", "app_id", id, "error", err)
		d = steam.Detail{}
	}

	l.Enriched = true
	if d.Found {
		l.JapaneseSupported = d.JapaneseSupported
		l.Description = d.Description
		l.VideoURL, l.VideoThumbnail = SelectPreview(d.Movies)
		l.Screenshots = screenshots(d.Screenshots)
		if l.Image == nil && d.HeaderImage != "" {
			l.Image = &d.HeaderImage
		}
		if l.ReleaseDate == "" {
			l.ReleaseDate = d.ReleaseDate
		}
	} else {
		l.JapaneseSupported = kana.MatchString(l.Title)
		l.Description = ""
		l.VideoURL, l.VideoThumbnail = nil, nil
		l.Screenshots = nil
	}

	if !l.Upcoming {
		l.Label = classify.Attention(l.Reviews, l.Sentiment)
		return l
	}

	followers, err := c.followers.Followers(ctx, id)
	if err != nil {
		c.log.Warn("followers", "app_id", id, "error", err)
		followers = 0
	}
	hasDemo := d.Found && len(d.Demos) > 0
	l.Followers = &followers
	l.HasDemo = &hasDemo
	l.Label = classify.Expectation(followers)
	return l
}

// SelectPreview picks one playable video from the first movie, preferring
// webm, then mp4, then the HLS manifest, and returns it with its thumbnail.
func SelectPreview(movies []steam.Movie) (video, thumbnail *string) {
	if len(movies) == 0 {
		return nil, nil
	}
	m := movies[0]

	candidates := []string{m.Webm["480"], m.Webm["max"], m.MP4["480"], m.MP4["max"], m.HLS}
	for _, u := range candidates {
		if u != "" {
			video = &u
			break
		}
	}
	if m.Thumbnail != "" {
		thumbnail = &m.Thumbnail
	}
	return video, thumbnail
}

func screenshots(shots []steam.Screenshot) []string {
	var out []string
	for _, s := range shots {
		if len(out) == MaxScreenshots {
			break
		}
		u := s.PathThumbnail
		if u == "" {
			u = s.PathFull
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
