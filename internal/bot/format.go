package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"arcana_bot/internal/classify"
	"arcana_bot/internal/discovery"
	"arcana_bot/internal/model"
	"arcana_bot/internal/news"
	"arcana_bot/internal/tags"
)

// MaxMessageLength is the Telegram limit for one text message.
const MaxMessageLength = 4096

const maxDescription = 300

// FormatListing renders one listing as a card.
func FormatListing(l model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s%s\n", classify.Emoji(l.Label), classify.Title(l.Label), rarityMark(classify.RarityOf(l.Label)))
	b.WriteString(l.Title)
	b.WriteString("\n")
	fmt.Fprintf(&b, "💴 %s · 📅 %s\n", l.Price, l.ReleaseDate)

	if l.Upcoming {
		if l.Followers != nil {
			fmt.Fprintf(&b, "👥 %s followers", humanize.Comma(int64(*l.Followers)))
			if l.HasDemo != nil && *l.HasDemo {
				b.WriteString(" · 🎮 demo available")
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "💬 %s (%s reviews)\n", l.Sentiment, humanize.Comma(int64(l.Reviews)))
	}

	if l.Enriched {
		if l.JapaneseSupported {
			b.WriteString("🇯🇵 Japanese supported\n")
		} else {
			b.WriteString("🌐 No Japanese\n")
		}
	}
	if l.Description != "" {
		b.WriteString(truncate(l.Description, maxDescription))
		b.WriteString("\n")
	}
	if l.VideoURL != nil {
		fmt.Fprintf(&b, "🎬 %s\n", *l.VideoURL)
	}
	b.WriteString(l.Link)
	return b.String()
}

// rarityMark decorates the label line of the higher tiers.
func rarityMark(r classify.Rarity) string {
	switch r {
	case classify.RaritySilver:
		return " ✦"
	case classify.RarityGold:
		return " ✦✦"
	case classify.RarityLegendary:
		return " ✦✦✦"
	default:
		return ""
	}
}

// FormatHeader renders the summary line above a result set.
func FormatHeader(title string, res discovery.Result) string {
	return fmt.Sprintf("%s: %s, %d found", title, modeTitle(res.Mode), len(res.Listings))
}

func modeTitle(m model.Mode) string {
	switch m {
	case model.ModeFuture:
		return "upcoming releases"
	case model.ModeArchive:
		return "treasure hunt"
	default:
		return "latest releases"
	}
}

// FormatSettings renders the saved preferences of a chat.
func FormatSettings(cs *model.ChatSettings) string {
	var b strings.Builder
	b.WriteString("Your search settings:\n\n")
	fmt.Fprintf(&b, "Mode: %s\n", cs.Mode)
	fmt.Fprintf(&b, "Include: %s\n", listOrNone(cs.IncludeTags))
	fmt.Fprintf(&b, "Exclude: %s\n", listOrNone(cs.ExcludeTags))
	lang := "Japanese only"
	if !cs.JapaneseOnly {
		lang = "all languages"
	}
	fmt.Fprintf(&b, "Language: %s\n", lang)
	fmt.Fprintf(&b, "Review limit: %s (up to %s)\n", cs.ReviewLimit, humanize.Comma(int64(cs.ReviewLimit.Max())))
	digest := "off"
	if cs.Digest {
		digest = "on"
		if cs.LastDigestAt != nil {
			digest += ", last sent " + humanize.Time(*cs.LastDigestAt)
		}
	}
	fmt.Fprintf(&b, "Digest: %s", digest)
	return b.String()
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

// FormatTags renders the tag catalogue grouped by category.
func FormatTags(cats []tags.Category) string {
	var b strings.Builder
	b.WriteString("Available tags:\n")
	for _, c := range cats {
		fmt.Fprintf(&b, "\n%s:\n%s\n", c.Name, strings.Join(c.Tags, ", "))
	}
	b.WriteString("\nUse /include or /exclude with comma-separated names.")
	return b.String()
}

// FormatNews renders app headlines.
func FormatNews(appID int64, headlines []news.Headline) string {
	if len(headlines) == 0 {
		return fmt.Sprintf("No news for app %d.", appID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "News for app %d:\n", appID)
	for _, h := range headlines {
		b.WriteString("\n")
		b.WriteString(h.Title)
		if h.Published != nil {
			fmt.Fprintf(&b, " (%s)", humanize.Time(*h.Published))
		}
		b.WriteString("\n")
		if h.Summary != "" {
			b.WriteString(h.Summary)
			b.WriteString("\n")
		}
		b.WriteString(h.Link)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Chunk packs parts into messages of at most limit characters, separating
// parts with a blank line. A part longer than limit is cut.
func Chunk(parts []string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, p := range parts {
		p = truncate(p, limit)
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(p) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
