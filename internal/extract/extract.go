// Package extract turns storefront search result markup into listings.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"

	"arcana_bot/internal/classify"
	"arcana_bot/internal/filter"
	"arcana_bot/internal/model"
)

// Display fallbacks for fields the storefront leaves blank.
const (
	PriceUnknown     = "Unknown"
	PriceFreeToPlay  = "Free to Play"
	PriceTBA         = "TBA"
	DateComingSoon   = "Coming Soon"
	SentimentNone    = "No reviews"
	SentimentPending = "Coming Soon"

	sentimentFallback  = "Positive"
	maxSentimentLength = 50
)

var (
	appIDPattern = regexp.MustCompile(`/app/(\d+)`)

	reviewsJapanese = regexp.MustCompile(`([\d,]+)\s*件のユーザーレビュー`)
	reviewsEnglish  = regexp.MustCompile(`(?i)([\d,]+)\s*user reviews`)
	reviewsPercent  = regexp.MustCompile(`([\d,]+)[^\d]*\d+%`)
	firstInteger    = regexp.MustCompile(`\d+`)
)

// Page parses one page of result rows and returns the rows that pass f, in
// row order. Rows that cannot be extracted are skipped individually.
func Page(html string, f model.SearchFilter) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}

	upcoming := f.Mode == model.ModeFuture
	var out []model.Listing
	doc.Find("a.search_result_row").Each(func(_ int, row *goquery.Selection) {
		l, ok := listing(row, f, upcoming)
		if ok {
			out = append(out, l)
		}
	})
	return out, nil
}

func listing(row *goquery.Selection, f model.SearchFilter, upcoming bool) (model.Listing, bool) {
	tagIDs, err := rowTagIDs(row)
	if err != nil {
		return model.Listing{}, false
	}
	if !filter.Match(tagIDs, f) {
		return model.Listing{}, false
	}

	title := row.Find(".title").First()
	if title.Length() == 0 {
		return model.Listing{}, false
	}
	link, ok := row.Attr("href")
	if !ok {
		return model.Listing{}, false
	}

	l := model.Listing{
		AppID:    AppID(link),
		Title:    strings.TrimSpace(title.Text()),
		Link:     link,
		Image:    image(row),
		Price:    price(row, upcoming),
		Upcoming: upcoming,
	}

	l.ReleaseDate = strings.TrimSpace(row.Find(".search_released").First().Text())
	if upcoming {
		if l.ReleaseDate == "" {
			l.ReleaseDate = DateComingSoon
		}
		l.Sentiment = SentimentPending
		return l, true
	}

	l.Sentiment = SentimentNone
	if summary := row.Find(".search_review_summary").First(); summary.Length() > 0 {
		tooltip, _ := summary.Attr("data-tooltip-html")
		l.Reviews = ParseReviewCount(tooltip)
		l.Sentiment = Sentiment(tooltip)
	}
	if f.MaxReviews != nil && l.Reviews > *f.MaxReviews {
		return model.Listing{}, false
	}
	l.Label = classify.Attention(l.Reviews, l.Sentiment)
	return l, true
}

func rowTagIDs(row *goquery.Selection) ([]int, error) {
	raw, ok := row.Attr("data-ds-tagids")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode tag ids: %w", err)
	}
	return ids, nil
}

// AppID extracts the numeric item id from a store link, or nil if the link
// does not point at an app page.
func AppID(link string) *int64 {
	m := appIDPattern.FindStringSubmatch(link)
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func image(row *goquery.Selection) *string {
	img := row.Find("img").First()
	src := img.AttrOr("src", "")
	if src == "" {
		src = img.AttrOr("data-src", "")
	}
	if src == "" {
		return nil
	}
	src = NormalizeImage(src)
	return &src
}

// NormalizeImage drops the query string and swaps the small capsule for the
// header-sized variant of the same asset.
func NormalizeImage(src string) string {
	src, _, _ = strings.Cut(src, "?")
	return strings.Replace(src, "capsule_sm_120", "header", 1)
}

func price(row *goquery.Selection, upcoming bool) string {
	if final := row.Find(".discount_final_price").First(); final.Length() > 0 {
		return strings.TrimSpace(final.Text())
	}
	if upcoming {
		if text := strings.TrimSpace(row.Find(".search_price").First().Text()); text != "" {
			return text
		}
		return PriceTBA
	}
	if p := row.Find(".search_price").First(); p.Length() > 0 {
		text := strings.TrimSpace(p.Text())
		if strings.Contains(text, "Free") || strings.Contains(text, "無料") {
			return PriceFreeToPlay
		}
		return text
	}
	return PriceUnknown
}

// ParseReviewCount reads the review count out of a review summary tooltip.
// It tries, in order: the localized "N件のユーザーレビュー" form, the English
// "N user reviews" form, a count followed by a percentage, and finally the
// first integer in the text. It returns 0 when nothing matches.
func ParseReviewCount(tooltip string) int {
	text := width.Fold.String(tooltip)
	for _, re := range []*regexp.Regexp{reviewsJapanese, reviewsEnglish, reviewsPercent} {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				return n
			}
		}
	}
	if m := firstInteger.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 0
}

// Sentiment returns the review descriptor: the first line of the tooltip,
// or a generic positive descriptor when that line is implausibly long.
func Sentiment(tooltip string) string {
	first, _, _ := strings.Cut(tooltip, "<br>")
	first = strings.TrimSpace(first)
	if utf8.RuneCountInString(first) >= maxSentimentLength {
		return sentimentFallback
	}
	return first
}
