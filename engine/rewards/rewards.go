// Package rewards applies quest rewards and computes levels from experience.
package rewards

import (
	"math"
	"slices"

	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// MaxLevel caps LevelFromExp.
const MaxLevel = 1000

// Curve is the cumulative experience curve. Reaching level L requires
// the sum over i in [1, L) of floor(BaseExp * i^Power).
type Curve struct {
	BaseExp float64
	Power   float64

	// thresholds[L] is the cumulative exp needed for level L.
	thresholds []int
}

// DefaultCurve is baseExp 100, power 1.25.
func DefaultCurve() *Curve {
	return NewCurve(100, 1.25)
}

// NewCurve precomputes thresholds up to MaxLevel.
func NewCurve(baseExp, power float64) *Curve {
	c := &Curve{BaseExp: baseExp, Power: power}
	c.thresholds = make([]int, MaxLevel+1)
	total := 0
	for level := 2; level <= MaxLevel; level++ {
		total += int(math.Floor(baseExp * math.Pow(float64(level-1), power)))
		c.thresholds[level] = total
	}
	return c
}

// CumulativeExpFor returns the exp needed to reach a level.
// Levels at or below 1 need nothing.
func (c *Curve) CumulativeExpFor(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return c.thresholds[level]
}

// LevelFromExp returns the highest level whose threshold exp meets.
// Negative exp counts as zero.
func (c *Curve) LevelFromExp(exp int) int {
	if exp < 0 {
		exp = 0
	}
	// thresholds is non-decreasing from index 1.
	n, found := slices.BinarySearch(c.thresholds[1:], exp)
	level := n // index n in the shifted slice is level n+1
	if found {
		level = n + 1
		// Equal thresholds only occur for base 0; take the highest.
		for level < MaxLevel && c.thresholds[level+1] == exp {
			level++
		}
	}
	if level < 1 {
		level = 1
	}
	return min(level, MaxLevel)
}

// GiveRewards adds the descriptor to the player and reports what was
// applied. LevelUp is set only when the level actually rises.
func (c *Curve) GiveRewards(p *types.Player, r types.RewardDescriptor) types.RewardResult {
	oldLevel := p.Level
	if oldLevel < 1 {
		oldLevel = c.LevelFromExp(p.Exp)
	}

	res := types.RewardResult{
		Berries: r.Berries,
		Exp:     r.Exp,
		Items:   []types.Item{},
		Allies:  []string{},
	}
	p.Exp += r.Exp
	p.Berries += r.Berries
	for _, it := range r.Items {
		if it.Qty <= 0 {
			it.Qty = 1
		}
		state.AddItem(p, it)
		res.Items = append(res.Items, it)
	}
	// Allies are a roster: a crewmate already aboard is not added twice.
	for _, ally := range r.Allies {
		if slices.Contains(p.Allies, ally) {
			continue
		}
		p.Allies = append(p.Allies, ally)
		res.Allies = append(res.Allies, ally)
	}

	p.Level = oldLevel
	if newLevel := c.LevelFromExp(p.Exp); newLevel > oldLevel {
		p.Level = newLevel
		res.LevelUp = &types.LevelUp{
			OldLevel:     oldLevel,
			NewLevel:     newLevel,
			LevelsGained: newLevel - oldLevel,
		}
	}
	return res
}
