// Package steam talks to the storefront: catalog search, app details, review
// summaries and the third-party follower proxy.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"arcana_bot/internal/metrics"
)

// Default endpoints and locale.
const (
	DefaultStoreBaseURL     = "https://store.steampowered.com"
	DefaultFollowersBaseURL = "https://games-popularity.com"
	DefaultCountry          = "JP"
	DefaultLanguage         = "japanese"
)

// Fixed catalog query values.
const (
	// BaselineTagID (Indie) is always part of the tag query.
	BaselineTagID = 492
	// PageSize is the number of rows requested per search page.
	PageSize = 50

	gamesCategory = 998
	maxBodySize   = 5 * 1024 * 1024
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage = "ja-JP,ja;q=0.9,en-US;q=0.8,en;q=0.7"
	ageGateCookie  = "wants_mature_content=1; birthtime=946652401; lastagecheckage=1-January-2000"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. Empty fields take the defaults above.
type Options struct {
	StoreBaseURL     string
	FollowersBaseURL string
	Country          string
	Language         string
}

// Client is the storefront client.
type Client struct {
	client HTTPClient
	opts   Options
}

// New creates a Client with the given HTTP client. Request timeouts are the
// HTTP client's responsibility.
func New(client HTTPClient, opts Options) *Client {
	if opts.StoreBaseURL == "" {
		opts.StoreBaseURL = DefaultStoreBaseURL
	}
	if opts.FollowersBaseURL == "" {
		opts.FollowersBaseURL = DefaultFollowersBaseURL
	}
	if opts.Country == "" {
		opts.Country = DefaultCountry
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	opts.StoreBaseURL = strings.TrimRight(opts.StoreBaseURL, "/")
	opts.FollowersBaseURL = strings.TrimRight(opts.FollowersBaseURL, "/")
	return &Client{client: client, opts: opts}
}

// NewHTTPClient returns an *http.Client bounded by timeout per request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Query describes one catalog search page.
type Query struct {
	TagIDs       []int
	JapaneseOnly bool
	Upcoming     bool
	Offset       int
	Count        int
}

// SearchParams builds the catalog query string for q.
func (c *Client) SearchParams(q Query) url.Values {
	ids := slices.Clone(q.TagIDs)
	if !slices.Contains(ids, BaselineTagID) {
		ids = append(ids, BaselineTagID)
	}
	tags := make([]string, len(ids))
	for i, id := range ids {
		tags[i] = strconv.Itoa(id)
	}

	count := q.Count
	if count <= 0 {
		count = PageSize
	}

	v := url.Values{}
	v.Set("tags", strings.Join(tags, ","))
	v.Set("cc", c.opts.Country)
	v.Set("l", c.opts.Language)
	v.Set("category1", strconv.Itoa(gamesCategory))
	v.Set("infinite", "1")
	v.Set("start", strconv.Itoa(q.Offset))
	v.Set("count", strconv.Itoa(count))
	if q.Upcoming {
		v.Set("filter", "comingsoon")
		v.Set("sort_by", "Released_ASC")
	} else {
		v.Set("sort_by", "Released_DESC")
	}
	if q.JapaneseOnly {
		v.Set("supportedlang", "japanese")
	}
	return v
}

// SearchPage fetches one page of catalog results and returns the embedded
// results markup.
func (c *Client) SearchPage(ctx context.Context, q Query) (string, error) {
	u := c.opts.StoreBaseURL + "/search/results/?" + c.SearchParams(q).Encode()
	body, status, err := c.get(ctx, "search", u)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("search: unexpected status %d", status)
	}

	var page struct {
		ResultsHTML string `json:"results_html"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return "", fmt.Errorf("decode search page: %w", err)
	}
	return page.ResultsHTML, nil
}

// AppDetails fetches the detail record of one app. An app the store does not
// know returns Detail{Found: false} and a nil error.
func (c *Client) AppDetails(ctx context.Context, appID int64) (Detail, error) {
	v := url.Values{}
	v.Set("appids", strconv.FormatInt(appID, 10))
	v.Set("l", c.opts.Language)
	v.Set("cc", c.opts.Country)

	body, status, err := c.get(ctx, "appdetails", c.opts.StoreBaseURL+"/api/appdetails?"+v.Encode())
	if err != nil {
		return Detail{}, err
	}
	if status != http.StatusOK {
		return Detail{}, fmt.Errorf("appdetails: unexpected status %d", status)
	}
	return decodeDetail(body, appID)
}

// Followers returns the latest follower count of an app from the follower
// proxy. Unknown apps report 0.
func (c *Client) Followers(ctx context.Context, appID int64) (int, error) {
	u := fmt.Sprintf("%s/swagger/api/game/followers/%d", c.opts.FollowersBaseURL, appID)
	body, status, err := c.get(ctx, "followers", u)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, nil
	}

	var resp struct {
		History []struct {
			Followers int `json:"followers"`
		} `json:"history"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode followers: %w", err)
	}
	if len(resp.History) == 0 || resp.History[0].Followers < 0 {
		return 0, nil
	}
	return resp.History[0].Followers, nil
}

// ReviewSummary is the aggregate review state of an app.
type ReviewSummary struct {
	Found       bool
	Positive    int
	Negative    int
	Total       int
	Description string
}

// Reviews fetches the review summary of one app.
func (c *Client) Reviews(ctx context.Context, appID int64) (ReviewSummary, error) {
	v := url.Values{}
	v.Set("json", "1")
	v.Set("language", "all")
	v.Set("purchase_type", "all")
	v.Set("num_per_page", "0")
	u := fmt.Sprintf("%s/appreviews/%d?%s", c.opts.StoreBaseURL, appID, v.Encode())

	body, status, err := c.get(ctx, "appreviews", u)
	if err != nil {
		return ReviewSummary{}, err
	}
	if status != http.StatusOK {
		return ReviewSummary{}, fmt.Errorf("appreviews: unexpected status %d", status)
	}

	var resp struct {
		Success int `json:"success"`
		Summary struct {
			TotalPositive   int    `json:"total_positive"`
			TotalNegative   int    `json:"total_negative"`
			TotalReviews    int    `json:"total_reviews"`
			ReviewScoreDesc string `json:"review_score_desc"`
		} `json:"query_summary"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ReviewSummary{}, fmt.Errorf("decode reviews: %w", err)
	}
	if resp.Success != 1 {
		return ReviewSummary{}, nil
	}
	return ReviewSummary{
		Found:       true,
		Positive:    resp.Summary.TotalPositive,
		Negative:    resp.Summary.TotalNegative,
		Total:       resp.Summary.TotalReviews,
		Description: resp.Summary.ReviewScoreDesc,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, int, error) {
	return Fetch(ctx, c.client, endpoint, rawURL)
}

// Fetch issues a store GET with the browser headers and returns the body,
// capped at 5 MiB, and the status code. Request count and latency are recorded
// under endpoint.
func Fetch(ctx context.Context, client HTTPClient, endpoint, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Cookie", ageGateCookie)

	start := time.Now()
	resp, err := client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
