// Package combat resolves mini-games and turn-based fights. Every resolver
// takes its randomness from an rng.Source so outcomes can be scripted.
package combat

import (
	"fmt"
	"math"

	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// MaxTurns bounds a turn-based fight.
const MaxTurns = 20

// Odds is a linear success chance clamped to [Floor, Ceiling].
type Odds struct {
	Base     float64
	PerPoint float64
	Floor    float64
	Ceiling  float64
}

// Chance returns the clamped success probability for a stat value.
func (o Odds) Chance(points int) float64 {
	c := o.Base + o.PerPoint*float64(points)
	return math.Max(o.Floor, math.Min(o.Ceiling, c))
}

var (
	// TrainingOdds scale with player level.
	TrainingOdds = Odds{Base: 0.3, PerPoint: 0.05, Floor: 0, Ceiling: 0.9}
	// FishingOdds are flat.
	FishingOdds = Odds{Base: 0.6, Floor: 0, Ceiling: 0.6}
	// MapPuzzleOdds scale with charisma.
	MapPuzzleOdds = Odds{Base: 0.3, PerPoint: 0.1, Floor: 0, Ceiling: 0.95}
)

// MapPuzzleReward is the power granted by a solved map puzzle.
const MapPuzzleReward = 3

// TrainingCheck rolls a training session. Success grants 3..7 power.
func TrainingCheck(p *types.Player, src rng.Source) types.MiniGameResult {
	chance := TrainingOdds.Chance(state.Level(p))
	if src.Float64() >= chance {
		return types.MiniGameResult{}
	}
	return types.MiniGameResult{Success: true, Amount: 3 + src.Intn(5)}
}

// SparCheck pits the player against a sparring partner of power 10..29.
// The player wins if power plus a 0..10 swing beats the partner.
func SparCheck(p *types.Player, src rng.Source) types.MiniGameResult {
	power := state.Power(p)
	opponent := 10 + src.Intn(20)
	if float64(power)+src.Float64()*10 <= float64(opponent) {
		return types.MiniGameResult{}
	}
	amount := int(math.Floor(float64(power-opponent)/5)) + 3
	return types.MiniGameResult{Success: true, Amount: max(2, amount)}
}

// FishingCheck rolls a fishing trip. Success grants 2..7.
func FishingCheck(p *types.Player, src rng.Source) types.MiniGameResult {
	if src.Float64() >= FishingOdds.Chance(0) {
		return types.MiniGameResult{}
	}
	return types.MiniGameResult{Success: true, Amount: 2 + src.Intn(6)}
}

// MapPuzzleCheck rolls a map-fragment puzzle against charisma.
func MapPuzzleCheck(p *types.Player, src rng.Source) types.MiniGameResult {
	chance := MapPuzzleOdds.Chance(state.Stat(p, "charisma"))
	if src.Float64() >= chance {
		return types.MiniGameResult{}
	}
	return types.MiniGameResult{Success: true, Amount: MapPuzzleReward}
}

// OpponentPower scales an opponent's base power with the player's level.
func OpponentPower(base, perLevel int, p *types.Player) int {
	return base + state.Level(p)*perLevel
}

// Opponent is the other side of a turn-based fight.
type Opponent struct {
	Name  string
	Power int
}

// StartingHP is the hit points a combatant of the given power enters with.
func StartingHP(power int) int {
	return 50 + power/2
}

// Strike computes one hit: max(1, floor(power/10 + roll*6)).
func Strike(power int, src rng.Source) int {
	dmg := int(math.Floor(float64(power)/10 + src.Float64()*6))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// TurnBasedFight runs a fight against an unnamed opponent.
func TurnBasedFight(p *types.Player, opponentPower int, src rng.Source) types.FightResult {
	return Fight(p, Opponent{Name: "Your opponent", Power: opponentPower}, src)
}

// Fight alternates strikes, player first, until one side drops or MaxTurns
// elapse. The player wins only with HP left and the opponent at zero.
func Fight(p *types.Player, opp Opponent, src rng.Source) types.FightResult {
	power := state.Power(p)
	playerHP := StartingHP(power)
	oppHP := StartingHP(opp.Power)

	var log []string
	turns := 0
	for playerHP > 0 && oppHP > 0 && turns < MaxTurns {
		turns++

		hit := Strike(power, src)
		oppHP -= hit
		log = append(log, fmt.Sprintf("You hit %s for %d.", opp.Name, hit))
		if oppHP <= 0 {
			break
		}

		back := Strike(opp.Power, src)
		playerHP -= back
		log = append(log, fmt.Sprintf("%s hits you for %d.", opp.Name, back))
	}

	return types.FightResult{
		Victory:    playerHP > 0 && oppHP <= 0,
		Log:        log,
		PlayerHP:   max(0, playerHP),
		OpponentHP: max(0, oppHP),
		Turns:      turns,
	}
}
