package classify

import "arcana_bot/internal/model"

// Rarity is the visual tier a label is rendered with.
type Rarity int

// Rarity tiers, lowest first.
const (
	RarityPlain Rarity = iota
	RaritySilver
	RarityGold
	RarityLegendary
)

type display struct {
	title  string
	emoji  string
	rarity Rarity
}

var displays = map[model.Label]display{
	model.LabelUnopenedChest:  {"Unopened Chest", "📦", RarityPlain},
	model.LabelBronzeChest:    {"Bronze Chest", "🥉", RarityPlain},
	model.LabelSilverChest:    {"Silver Chest", "🥈", RaritySilver},
	model.LabelGoldChest:      {"Gold Chest", "🥇", RarityGold},
	model.LabelLegendaryChest: {"Legendary Chest", "⚡", RarityLegendary},
	model.LabelBalanceChest:   {"Balance Chest", "⚖️", RarityPlain},
	model.LabelDemonChest:     {"Demon Chest", "🔥", RarityPlain},
	model.LabelHiddenGem:      {"Hidden Gem", "💎", RarityGold},
	model.LabelSprout:         {"Sprout", "🌱", RarityPlain},
	model.LabelStarTower:      {"Star Tower", "⭐", RarityPlain},
	model.LabelMoonTower:      {"Moon Tower", "🌙", RaritySilver},
	model.LabelSunTower:       {"Sun Tower", "☀️", RarityGold},
	model.LabelNayutaTower:    {"Nayuta Tower", "🌟", RarityLegendary},
}

// Title returns the display name of a label, or the raw label if unknown.
func Title(l model.Label) string {
	if d, ok := displays[l]; ok {
		return d.title
	}
	return string(l)
}

// Emoji returns the badge glyph of a label.
func Emoji(l model.Label) string {
	return displays[l].emoji
}

// RarityOf returns the visual tier of a label.
func RarityOf(l model.Label) Rarity {
	return displays[l].rarity
}
