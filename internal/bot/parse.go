package bot

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"arcana_bot/internal/model"
	"arcana_bot/internal/tags"
)

// ParseTagArgs splits a comma-separated tag list and maps each entry to its
// canonical name, case-insensitively. Unknown names are returned separately.
// Format: Roguelike, Open World, Deckbuilder
func ParseTagArgs(idx *tags.Index, args string) (known, unknown []string) {
	names := idx.Names()
	for _, raw := range strings.Split(args, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if name, ok := canonicalTag(names, raw); ok {
			if !slices.Contains(known, name) {
				known = append(known, name)
			}
		} else {
			unknown = append(unknown, raw)
		}
	}
	return known, unknown
}

func canonicalTag(names []string, raw string) (string, bool) {
	for _, n := range names {
		if strings.EqualFold(n, raw) {
			return n, true
		}
	}
	return "", false
}

func removeAll(list, drop []string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(s string) bool {
		return slices.Contains(drop, s)
	})
}

// ParseLang converts a /lang argument into the Japanese-only flag.
func ParseLang(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jp", "ja", "japanese":
		return true, nil
	case "all", "any":
		return false, nil
	}
	return false, fmt.Errorf("unknown language %q, use: jp, all", s)
}

// ParseAppID extracts a numeric app id from a command argument string. Store
// links are accepted too.
func ParseAppID(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("app ID is required")
	}
	s = strings.Fields(s)[0]
	if i := strings.Index(s, "/app/"); i >= 0 {
		s = strings.SplitN(s[i+len("/app/"):], "/", 2)[0]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid app ID %q", s)
	}
	return id, nil
}

// ParseOnOff parses a toggle argument.
func ParseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "1":
		return true, nil
	case "off", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("use: on, off")
}

func parseMode(s string) (model.Mode, error) {
	return model.ParseMode(strings.ToLower(strings.TrimSpace(s)))
}

func parseLimit(s string) (model.ReviewLimit, error) {
	return model.ParseReviewLimit(strings.ToLower(strings.TrimSpace(s)))
}
