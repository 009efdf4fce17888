package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"arcana_bot/internal/model"
	"arcana_bot/internal/tags"
)

func TestParseTagArgs(t *testing.T) {
	idx, err := tags.Load([]byte(testTags))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		args        string
		wantKnown   []string
		wantUnknown []string
	}{
		{name: "single", args: "Action", wantKnown: []string{"Action"}},
		{name: "case insensitive", args: "open world", wantKnown: []string{"Open World"}},
		{name: "comma separated with spaces", args: " Horror ,Deckbuilder ", wantKnown: []string{"Horror", "Deckbuilder"}},
		{name: "duplicates collapse", args: "Horror, horror", wantKnown: []string{"Horror"}},
		{name: "unknown kept apart", args: "Action, Golf", wantKnown: []string{"Action"}, wantUnknown: []string{"Golf"}},
		{name: "empty entries skipped", args: ",,", wantKnown: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			known, unknown := ParseTagArgs(idx, tt.args)
			if diff := cmp.Diff(tt.wantKnown, known); diff != "" {
				t.Errorf("known mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantUnknown, unknown); diff != "" {
				t.Errorf("unknown mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAppID(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{name: "number", args: "1794680", want: 1794680},
		{name: "extra words", args: " 42 please", want: 42},
		{name: "store link", args: "https://store.steampowered.com/app/367520/Hollow_Knight/", want: 367520},
		{name: "empty", args: "", wantErr: true},
		{name: "not a number", args: "abc", wantErr: true},
		{name: "negative", args: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAppID(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAppID(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAppID(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseLangAndOnOff(t *testing.T) {
	for in, want := range map[string]bool{"jp": true, "JA": true, "all": false, " any ": false} {
		got, err := ParseLang(in)
		if err != nil || got != want {
			t.Errorf("ParseLang(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLang("fr"); err == nil {
		t.Error("ParseLang(fr) expected error")
	}

	for in, want := range map[string]bool{"on": true, "Yes": true, "off": false, "0": false} {
		got, err := ParseOnOff(in)
		if err != nil || got != want {
			t.Errorf("ParseOnOff(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseOnOff(""); err == nil {
		t.Error("ParseOnOff(\"\") expected error")
	}
}

func TestFormatListing(t *testing.T) {
	video := "https://cdn.test/480.webm"
	followers := 12500
	demo := true

	t.Run("released", func(t *testing.T) {
		got := FormatListing(model.Listing{
			Title:             "Tiny Dungeon",
			Link:              "https://store.test/app/1/",
			Price:             "¥1,200",
			ReleaseDate:       "2024年5月1日",
			Reviews:           1234,
			Sentiment:         "Very Positive",
			Label:             model.LabelGoldChest,
			Enriched:          true,
			JapaneseSupported: true,
			Description:       strings.Repeat("x", 400),
			VideoURL:          &video,
		})
		for _, want := range []string{
			"🥇 Gold Chest ✦✦\nTiny Dungeon\n",
			"💴 ¥1,200 · 📅 2024年5月1日",
			"💬 Very Positive (1,234 reviews)",
			"🇯🇵 Japanese supported",
			"🎬 " + video,
		} {
			requireContains(t, got, want)
		}
		if !strings.HasSuffix(got, "https://store.test/app/1/") {
			t.Errorf("card should end with the link:\n%s", got)
		}
		if strings.Contains(got, strings.Repeat("x", 301)) {
			t.Error("description was not truncated")
		}
	})

	t.Run("upcoming", func(t *testing.T) {
		got := FormatListing(model.Listing{
			Title:     "Soon",
			Upcoming:  true,
			Followers: &followers,
			HasDemo:   &demo,
			Label:     model.LabelSunTower,
		})
		requireContains(t, got, "☀️ Sun Tower ✦✦\nSoon\n")
		requireContains(t, got, "👥 12,500 followers · 🎮 demo available")
		if strings.Contains(got, "reviews") {
			t.Errorf("upcoming card should not show reviews:\n%s", got)
		}
	})
}

func TestFormatListingRarity(t *testing.T) {
	tests := []struct {
		label model.Label
		want  string
	}{
		{model.LabelBronzeChest, "🥉 Bronze Chest\n"},
		{model.LabelMoonTower, "🌙 Moon Tower ✦\n"},
		{model.LabelHiddenGem, "💎 Hidden Gem ✦✦\n"},
		{model.LabelLegendaryChest, "⚡ Legendary Chest ✦✦✦\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			got := FormatListing(model.Listing{Title: "x", Label: tt.label})
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("card starts with %q, want prefix %q", strings.SplitN(got, "\n", 2)[0], tt.want)
			}
		})
	}
}

func TestFormatSettings(t *testing.T) {
	cs := model.DefaultSettings(1)
	cs.IncludeTags = []string{"Action", "Horror"}
	cs.ReviewLimit = model.ReviewLimitNormal

	got := FormatSettings(&cs)
	requireContains(t, got, "Include: Action, Horror")
	requireContains(t, got, "Exclude: none")
	requireContains(t, got, "Review limit: normal (up to 500)")
	requireContains(t, got, "Digest: off")
}

func TestChunk(t *testing.T) {
	t.Run("packs small parts together", func(t *testing.T) {
		got := Chunk([]string{"a", "b", "c"}, 100)
		if diff := cmp.Diff([]string{"a\n\nb\n\nc"}, got); diff != "" {
			t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("splits at the limit", func(t *testing.T) {
		got := Chunk([]string{"aaaa", "bbbb", "cccc"}, 10)
		if diff := cmp.Diff([]string{"aaaa\n\nbbbb", "cccc"}, got); diff != "" {
			t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cuts oversized parts", func(t *testing.T) {
		got := Chunk([]string{strings.Repeat("あ", 20)}, 10)
		if len(got) != 1 || utf8.RuneCountInString(got[0]) != 10 || !strings.HasSuffix(got[0], "…") {
			t.Errorf("Chunk() = %q", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Chunk(nil, 10); got != nil {
			t.Errorf("Chunk(nil) = %q, want nil", got)
		}
	})
}
