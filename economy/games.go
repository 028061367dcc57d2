package economy

import (
	"fmt"
	"math/rand/v2"
)

// Rand is the randomness the games draw from.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand uses the math/rand/v2 global source.
var DefaultRand Rand = globalRand{}

// Outcome is a resolved bet. Delta is applied to the ledger once, under Reason.
type Outcome struct {
	Win    bool
	Delta  int64
	Reason string
}

// Push reports a bet that neither wins nor loses.
func (o Outcome) Push() bool {
	return o.Delta == 0 && !o.Win
}

// Flip tosses a coin against guess ("heads" or "tails").
func Flip(r Rand, amount int64, guess string) (string, Outcome) {
	result := "heads"
	if r.IntN(2) == 1 {
		result = "tails"
	}
	if guess == result {
		return result, Outcome{Win: true, Delta: amount, Reason: fmt.Sprintf("Flip win (%s)", result)}
	}
	return result, Outcome{Delta: -amount, Reason: fmt.Sprintf("Flip loss (%s)", result)}
}

// HighLow draws two cards from 2..14 and checks whether the second one is
// "higher" or "lower" than the first. Equal cards lose.
func HighLow(r Rand, amount int64, choice string) (int, int, Outcome) {
	a, b := 2+r.IntN(13), 2+r.IntN(13)
	win := (choice == "higher" && b > a) || (choice == "lower" && b < a)
	if win {
		return a, b, Outcome{Win: true, Delta: amount, Reason: fmt.Sprintf("HighLow win (%s)", choice)}
	}
	return a, b, Outcome{Delta: -amount, Reason: fmt.Sprintf("HighLow loss (%s)", choice)}
}

// Roll throws a die against target in 2..6. Higher targets pay less but
// are harder to hit.
func Roll(r Rand, amount int64, target int) (int, Outcome, error) {
	if target < 2 || target > 6 {
		return 0, Outcome{}, fmt.Errorf("roll target %d out of range 2-6", target)
	}
	roll := 1 + r.IntN(6)
	if roll >= target {
		win := amount * int64(7-target) / 6
		return roll, Outcome{Win: true, Delta: win, Reason: fmt.Sprintf("Roll win (≥%d)", target)}, nil
	}
	return roll, Outcome{Delta: -amount, Reason: fmt.Sprintf("Roll loss (<%d)", target)}, nil
}

// SlotSymbols are the reel faces.
var SlotSymbols = []string{"🍒", "🍋", "🔔", "⭐"}

// SlotsMultiplier returns 5 for three of a kind, 2 for a pair, 0 otherwise.
func SlotsMultiplier(reels [3]string) int64 {
	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		return 5
	case reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2]:
		return 2
	}
	return 0
}

// Slots spins three reels.
func Slots(r Rand, amount int64) ([3]string, Outcome) {
	var reels [3]string
	for i := range reels {
		reels[i] = SlotSymbols[r.IntN(len(SlotSymbols))]
	}
	mult := SlotsMultiplier(reels)
	if mult == 0 {
		return reels, Outcome{Delta: -amount, Reason: "Slots loss"}
	}
	return reels, Outcome{Win: true, Delta: amount * mult, Reason: fmt.Sprintf("Slots win x%d", mult)}
}

// Crash is one round of the crash game. The multiplier climbs until it
// passes Point or the player cashes out.
type Crash struct {
	Amount  int64
	Point   float64
	Current float64
	Ended   bool
}

// NewCrash picks a crash point uniformly in [0, 20).
func NewCrash(r Rand, amount int64) *Crash {
	return &Crash{Amount: amount, Point: r.Float64() * 20, Current: 1.0}
}

// Crashed reports whether the multiplier has reached the crash point.
func (c *Crash) Crashed() bool {
	return c.Current >= c.Point
}

// Step raises the multiplier by 0.1-0.5. It returns the losing outcome and
// true once the round crashes.
func (c *Crash) Step(r Rand) (Outcome, bool) {
	if c.Ended {
		return Outcome{}, false
	}
	if !c.Crashed() {
		c.Current += 0.1 + r.Float64()*0.4
	}
	if c.Crashed() {
		return c.Lose(), true
	}
	return Outcome{}, false
}

// CashOut ends the round at the current multiplier. ok is false when the
// round already ended.
func (c *Crash) CashOut() (Outcome, bool) {
	if c.Ended {
		return Outcome{}, false
	}
	c.Ended = true
	payout := int64(float64(c.Amount) * c.Current)
	return Outcome{Win: true, Delta: payout - c.Amount, Reason: fmt.Sprintf("Crash win x%.2f", c.Current)}, true
}

// Payout is what the player receives when cashing out now.
func (c *Crash) Payout() int64 {
	return int64(float64(c.Amount) * c.Current)
}

// Lose ends the round as a loss. Timeouts use it as well.
func (c *Crash) Lose() Outcome {
	c.Ended = true
	return Outcome{Delta: -c.Amount, Reason: fmt.Sprintf("Crash loss x%.2f", c.Point)}
}
