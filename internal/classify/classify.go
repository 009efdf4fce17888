// Package classify maps popularity signals to human-facing labels.
package classify

import (
	"strings"

	"arcana_bot/internal/model"
)

// Descriptor vocabulary. Storefront descriptors arrive in English or Japanese
// depending on the requested locale.
var (
	overwhelminglyPositive = []string{"overwhelmingly positive", "圧倒的に好評"}
	veryPositive           = []string{"very positive", "非常に好評"}
	mostlyPositive         = []string{"mostly positive", "やや好評"}
	positive               = []string{"positive", "好評"}
	mixed                  = []string{"mixed", "賛否両論"}
	negative               = []string{"negative", "不評"}
)

type signal struct {
	reviews    int
	descriptor string
}

type rule struct {
	label model.Label
	match func(signal) bool
}

// attentionRules is evaluated top to bottom; the first match wins.
var attentionRules = []rule{
	{model.LabelUnopenedChest, func(s signal) bool { return s.reviews == 0 }},
	{model.LabelLegendaryChest, func(s signal) bool { return contains(s.descriptor, overwhelminglyPositive) }},
	{model.LabelHiddenGem, func(s signal) bool { return contains(s.descriptor, veryPositive) && s.reviews <= 100 }},
	{model.LabelSprout, func(s signal) bool { return contains(s.descriptor, positive) && s.reviews <= 10 }},
	{model.LabelGoldChest, func(s signal) bool { return contains(s.descriptor, veryPositive) }},
	{model.LabelBronzeChest, func(s signal) bool { return contains(s.descriptor, mostlyPositive) }},
	{model.LabelSilverChest, func(s signal) bool { return contains(s.descriptor, positive) }},
	{model.LabelBalanceChest, func(s signal) bool { return contains(s.descriptor, mixed) }},
	{model.LabelDemonChest, func(s signal) bool { return contains(s.descriptor, negative) }},
}

// Attention classifies a released item by review count and review descriptor.
// Unrecognised descriptors fall back to LabelSilverChest.
func Attention(reviews int, descriptor string) model.Label {
	s := signal{reviews: reviews, descriptor: strings.ToLower(descriptor)}
	for _, r := range attentionRules {
		if r.match(s) {
			return r.label
		}
	}
	return model.LabelSilverChest
}

// Expectation classifies an upcoming item by follower count.
func Expectation(followers int) model.Label {
	switch {
	case followers <= 10:
		return model.LabelStarTower
	case followers <= 100:
		return model.LabelMoonTower
	case followers <= 1000:
		return model.LabelSunTower
	default:
		return model.LabelNayutaTower
	}
}

func contains(s string, vocab []string) bool {
	for _, v := range vocab {
		if strings.Contains(s, v) {
			return true
		}
	}
	return false
}
