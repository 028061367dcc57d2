package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays fixed values.
type seqRand struct {
	ints   []int
	floats []float64
}

func (s *seqRand) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *seqRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestSlotsPayouts(t *testing.T) {
	tests := []struct {
		name   string
		ints   []int
		delta  int64
		reason string
	}{
		{"triple", []int{0, 0, 0}, 500, "Slots win x5"},
		{"pair", []int{2, 1, 2}, 200, "Slots win x2"},
		{"miss", []int{0, 1, 2}, -100, "Slots loss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := Slots(&seqRand{ints: tt.ints}, 100)
			assert.Equal(t, tt.delta, out.Delta)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Equal(t, tt.delta > 0, out.Win)
		})
	}
}

func TestSlotsMultiplier(t *testing.T) {
	assert.EqualValues(t, 5, SlotsMultiplier([3]string{"⭐", "⭐", "⭐"}))
	assert.EqualValues(t, 2, SlotsMultiplier([3]string{"⭐", "🍋", "⭐"}))
	assert.EqualValues(t, 0, SlotsMultiplier([3]string{"🍒", "🍋", "🔔"}))
}

func TestFlip(t *testing.T) {
	result, out := Flip(&seqRand{ints: []int{1}}, 40, "tails")
	assert.Equal(t, "tails", result)
	assert.Equal(t, Outcome{Win: true, Delta: 40, Reason: "Flip win (tails)"}, out)

	result, out = Flip(&seqRand{ints: []int{0}}, 40, "tails")
	assert.Equal(t, "heads", result)
	assert.Equal(t, Outcome{Delta: -40, Reason: "Flip loss (heads)"}, out)
}

func TestHighLow(t *testing.T) {
	a, b, out := HighLow(&seqRand{ints: []int{0, 5}}, 10, "higher")
	assert.Equal(t, 2, a)
	assert.Equal(t, 7, b)
	assert.Equal(t, "HighLow win (higher)", out.Reason)
	assert.EqualValues(t, 10, out.Delta)

	_, _, out = HighLow(&seqRand{ints: []int{3, 3}}, 10, "lower")
	assert.False(t, out.Win, "equal cards lose")
	assert.EqualValues(t, -10, out.Delta)
}

func TestRoll(t *testing.T) {
	roll, out, err := Roll(&seqRand{ints: []int{3}}, 100, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, roll)
	assert.Equal(t, Outcome{Win: true, Delta: 50, Reason: "Roll win (≥4)"}, out)

	roll, out, err = Roll(&seqRand{ints: []int{0}}, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, roll)
	assert.Equal(t, Outcome{Delta: -100, Reason: "Roll loss (<2)"}, out)

	_, _, err = Roll(&seqRand{}, 100, 7)
	assert.Error(t, err)
}

func TestCrashCashOut(t *testing.T) {
	r := &seqRand{floats: []float64{0.1, 1.0}}
	c := NewCrash(r, 100)
	assert.InDelta(t, 2.0, c.Point, 1e-9)
	assert.Equal(t, 1.0, c.Current)

	_, crashed := c.Step(r)
	require.False(t, crashed)
	assert.InDelta(t, 1.5, c.Current, 1e-9)
	assert.EqualValues(t, 150, c.Payout())

	out, ok := c.CashOut()
	require.True(t, ok)
	assert.Equal(t, Outcome{Win: true, Delta: 50, Reason: "Crash win x1.50"}, out)

	_, ok = c.CashOut()
	assert.False(t, ok, "second cash out is ignored")
	_, crashed = c.Step(r)
	assert.False(t, crashed)
}

func TestCrashLoses(t *testing.T) {
	r := &seqRand{floats: []float64{0.025}}
	c := NewCrash(r, 100)

	out, crashed := c.Step(r)
	require.True(t, crashed)
	assert.Equal(t, Outcome{Delta: -100, Reason: "Crash loss x0.50"}, out)
	assert.True(t, c.Ended)

	_, ok := c.CashOut()
	assert.False(t, ok)
}

// deck returns cards so that the first argument is drawn first.
func deck(cards ...int) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[len(cards)-1-i] = c
	}
	return out
}

func TestNewDeck(t *testing.T) {
	d := NewDeck()
	require.Len(t, d, 52)
	counts := map[int]int{}
	for _, c := range d {
		counts[c]++
	}
	assert.Equal(t, 4, counts[1])
	assert.Equal(t, 16, counts[10])
	assert.Equal(t, 4, counts[5])
}

func TestBestScore(t *testing.T) {
	assert.Equal(t, 21, BestScore([]int{1, 10}))
	assert.Equal(t, 13, BestScore([]int{1, 1, 1}))
	assert.Equal(t, 12, BestScore([]int{1, 10, 1}))
	assert.Equal(t, 20, BestScore([]int{10, 10}))
}

func TestBlackjackNaturalPaysOneAndAHalf(t *testing.T) {
	b := dealBlackjack(deck(1, 10, 10, 7), 100, true)
	out, err := b.Stand()
	require.NoError(t, err)
	assert.Equal(t, Outcome{Win: true, Delta: 150, Reason: "Blackjack win x1.5"}, out)
}

func TestBlackjackDealerDrawsToSeventeen(t *testing.T) {
	b := dealBlackjack(deck(10, 9, 10, 2, 5), 100, true)
	out, err := b.Stand()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 2, 5}, b.Dealer)
	assert.Equal(t, Outcome{Win: true, Delta: 100, Reason: "Blackjack win x1.0"}, out)
}

func TestBlackjackPush(t *testing.T) {
	b := dealBlackjack(deck(10, 7, 10, 7), 100, true)
	out, err := b.Stand()
	require.NoError(t, err)
	assert.True(t, out.Push())
	assert.Zero(t, out.Delta)
}

func TestBlackjackBust(t *testing.T) {
	b := dealBlackjack(deck(10, 9, 10, 7, 5), 100, true)
	out, bust, err := b.Hit()
	require.NoError(t, err)
	require.True(t, bust)
	assert.Equal(t, Outcome{Delta: -100, Reason: "Blackjack loss"}, out)

	_, err = b.Stand()
	assert.ErrorIs(t, err, ErrHandOver)
}

func TestBlackjackManualAce(t *testing.T) {
	b := dealBlackjack(deck(5, 5, 10, 7, 1), 100, false)
	require.False(t, b.AcePending())

	_, bust, err := b.Hit()
	require.NoError(t, err)
	require.False(t, bust)
	require.True(t, b.AcePending())

	_, err = b.Stand()
	assert.ErrorIs(t, err, ErrAcePending)
	_, _, err = b.Hit()
	assert.ErrorIs(t, err, ErrAcePending)

	require.Error(t, b.SetAce(5))
	require.NoError(t, b.SetAce(11))
	assert.Equal(t, 21, b.PlayerScore())

	out, err := b.Stand()
	require.NoError(t, err)
	assert.Equal(t, Outcome{Win: true, Delta: 100, Reason: "Blackjack win x1.0"}, out)
}

func TestBlackjackManualAceDealt(t *testing.T) {
	b := dealBlackjack(deck(1, 9, 10, 8), 50, false)
	require.True(t, b.AcePending())
	require.NoError(t, b.SetAce(1))
	assert.Equal(t, 10, b.PlayerScore())
	assert.False(t, b.AcePending())
}
