package rewards

import (
	"testing"

	"github.com/Elenyx/discordrpg/types"
)

func TestCumulativeExpFor_KnownValues(t *testing.T) {
	c := DefaultCurve()
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		// 100 + floor(100 * 2^1.25) = 100 + 237
		{3, 337},
		// + floor(100 * 3^1.25) = 394
		{4, 731},
	}
	for _, tt := range tests {
		if got := c.CumulativeExpFor(tt.level); got != tt.want {
			t.Errorf("CumulativeExpFor(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelFromExp_RoundTrip(t *testing.T) {
	c := DefaultCurve()
	for _, level := range []int{1, 2, 3, 5, 10, 50, 200} {
		exp := c.CumulativeExpFor(level)
		if got := c.LevelFromExp(exp); got != level {
			t.Errorf("LevelFromExp(CumulativeExpFor(%d)) = %d", level, got)
		}
	}
}

func TestLevelFromExp_JustBelowThreshold(t *testing.T) {
	c := DefaultCurve()
	for _, level := range []int{2, 3, 10, 99} {
		if got := c.LevelFromExp(c.CumulativeExpFor(level) - 1); got != level-1 {
			t.Errorf("one exp short of level %d gave level %d", level, got)
		}
	}
}

func TestLevelFromExp_Interpolates(t *testing.T) {
	c := DefaultCurve()
	mid := (c.CumulativeExpFor(2) + c.CumulativeExpFor(3)) / 2
	if got := c.LevelFromExp(mid); got != 2 {
		t.Errorf("LevelFromExp(%d) = %d, want 2", mid, got)
	}
}

func TestLevelFromExp_Monotonic(t *testing.T) {
	c := DefaultCurve()
	prev := 0
	for exp := -10; exp < 20000; exp += 37 {
		lvl := c.LevelFromExp(exp)
		if lvl < prev {
			t.Fatalf("level dropped from %d to %d at exp %d", prev, lvl, exp)
		}
		prev = lvl
	}
}

func TestLevelFromExp_Bounds(t *testing.T) {
	c := DefaultCurve()
	if got := c.LevelFromExp(-500); got != 1 {
		t.Errorf("negative exp gave level %d", got)
	}
	if got := c.LevelFromExp(1 << 62); got != MaxLevel {
		t.Errorf("huge exp gave level %d, want %d", got, MaxLevel)
	}
}

func TestGiveRewards_AppliesDeltas(t *testing.T) {
	c := DefaultCurve()
	p := &types.Player{Level: 1, Exp: 0, Berries: 10}
	res := c.GiveRewards(p, types.RewardDescriptor{
		Berries: 100,
		Exp:     50,
		Items:   []types.Item{{ID: "straw_hat", Name: "Straw Hat", Qty: 1}},
		Allies:  []string{"Luffy"},
	})

	if p.Berries != 110 || p.Exp != 50 {
		t.Errorf("berries=%d exp=%d", p.Berries, p.Exp)
	}
	if res.Berries != 100 || res.Exp != 50 {
		t.Errorf("result = %+v", res)
	}
	if len(p.Items) != 1 || p.Items[0].Name != "Straw Hat" {
		t.Errorf("items = %v", p.Items)
	}
	if len(res.Allies) != 1 || p.Allies[0] != "Luffy" {
		t.Errorf("allies = %v", p.Allies)
	}
	if res.LevelUp != nil {
		t.Errorf("50 exp should not level up, got %+v", res.LevelUp)
	}
}

func TestGiveRewards_LevelUp(t *testing.T) {
	c := DefaultCurve()
	p := &types.Player{Level: 1, Exp: 90}
	res := c.GiveRewards(p, types.RewardDescriptor{Exp: 300})

	if res.LevelUp == nil {
		t.Fatal("expected level up")
	}
	if res.LevelUp.OldLevel != 1 || res.LevelUp.NewLevel != 3 || res.LevelUp.LevelsGained != 2 {
		t.Errorf("level up = %+v", res.LevelUp)
	}
	if p.Level != 3 {
		t.Errorf("player level = %d, want 3", p.Level)
	}
}

func TestGiveRewards_StackedItemsAndDuplicateAllies(t *testing.T) {
	c := DefaultCurve()
	p := &types.Player{
		Level:  1,
		Items:  []types.Item{{ID: "straw_hat", Name: "Straw Hat", Qty: 1}},
		Allies: []string{"Luffy"},
	}
	res := c.GiveRewards(p, types.RewardDescriptor{
		Items:  []types.Item{{ID: "straw_hat", Name: "Straw Hat"}},
		Allies: []string{"Luffy", "Zoro"},
	})
	if len(p.Items) != 1 || p.Items[0].Qty != 2 {
		t.Errorf("items = %v", p.Items)
	}
	if len(p.Allies) != 2 || len(res.Allies) != 1 || res.Allies[0] != "Zoro" {
		t.Errorf("allies = %v, reported %v", p.Allies, res.Allies)
	}
}

func TestGiveRewards_LevelDerivedWhenUnset(t *testing.T) {
	c := DefaultCurve()
	p := &types.Player{Exp: 150}
	res := c.GiveRewards(p, types.RewardDescriptor{Exp: 10})
	if res.LevelUp != nil {
		t.Errorf("no threshold crossed, got %+v", res.LevelUp)
	}
	if p.Level != 2 {
		t.Errorf("level = %d, want 2", p.Level)
	}
}

func TestGiveRewards_EmptyDescriptor(t *testing.T) {
	c := DefaultCurve()
	p := &types.Player{Level: 4, Exp: c.CumulativeExpFor(4)}
	res := c.GiveRewards(p, types.RewardDescriptor{})
	if res.LevelUp != nil || res.Exp != 0 || len(res.Items) != 0 {
		t.Errorf("empty reward applied something: %+v", res)
	}
}
