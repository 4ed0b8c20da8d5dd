package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Elenyx/discordrpg/engine/quest"
	"github.com/Elenyx/discordrpg/engine/rewards"
)

// Balance holds the tunable game numbers.
type Balance struct {
	Leveling   Leveling          `yaml:"leveling"`
	Encounters Encounters        `yaml:"encounters"`
	ItemIcons  map[string]string `yaml:"itemIcons"`
}

// Leveling parameterizes the experience curve.
type Leveling struct {
	BaseExp float64 `yaml:"baseExp"`
	Power   float64 `yaml:"power"`
}

// Encounters tunes gated and retry-limited encounters.
type Encounters struct {
	RetryCeiling     int `yaml:"retryCeiling"`
	RequiredTraining int `yaml:"requiredTraining"`
	MorganBase       int `yaml:"morganBase"`
	MorganPerLevel   int `yaml:"morganPerLevel"`
}

// DefaultBalance returns the stock numbers.
func DefaultBalance() Balance {
	var b Balance
	b.ApplyDefaults()
	return b
}

// ApplyDefaults fills every unset field.
func (b *Balance) ApplyDefaults() {
	if b.Leveling.BaseExp == 0 {
		b.Leveling.BaseExp = 100
	}
	if b.Leveling.Power == 0 {
		b.Leveling.Power = 1.25
	}
	def := quest.DefaultEncounters()
	if b.Encounters.RetryCeiling == 0 {
		b.Encounters.RetryCeiling = def.RetryCeiling
	}
	if b.Encounters.RequiredTraining == 0 {
		b.Encounters.RequiredTraining = def.RequiredTraining
	}
	if b.Encounters.MorganBase == 0 {
		b.Encounters.MorganBase = def.OpponentBase
	}
	if b.Encounters.MorganPerLevel == 0 {
		b.Encounters.MorganPerLevel = def.OpponentPerLevel
	}
	if b.ItemIcons == nil {
		b.ItemIcons = map[string]string{
			"straw_hat":    "👒",
			"map_fragment": "🗺️",
			"meat":         "🍖",
			"dial":         "🐚",
		}
	}
}

// LoadBalance reads a YAML balance file. An empty path yields the defaults.
func LoadBalance(path string) (Balance, error) {
	if path == "" {
		return DefaultBalance(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Balance{}, fmt.Errorf("read balance file: %w", err)
	}
	var b Balance
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Balance{}, fmt.Errorf("parse balance file %s: %w", path, err)
	}
	b.ApplyDefaults()
	if b.Leveling.BaseExp < 0 || b.Leveling.Power <= 0 {
		return Balance{}, fmt.Errorf("balance file %s: leveling values must be positive", path)
	}
	return b, nil
}

// Curve returns the leveling curve.
func (b Balance) Curve() *rewards.Curve {
	return rewards.NewCurve(b.Leveling.BaseExp, b.Leveling.Power)
}

// QuestEncounters converts the encounter numbers for the quest engine.
func (b Balance) QuestEncounters() quest.Encounters {
	return quest.Encounters{
		RetryCeiling:     b.Encounters.RetryCeiling,
		RequiredTraining: b.Encounters.RequiredTraining,
		OpponentBase:     b.Encounters.MorganBase,
		OpponentPerLevel: b.Encounters.MorganPerLevel,
	}
}

// Icon returns the display icon for an item, or a bullet.
func (b Balance) Icon(itemID string) string {
	if icon, ok := b.ItemIcons[itemID]; ok {
		return icon
	}
	return "•"
}
