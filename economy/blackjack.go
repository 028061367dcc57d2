package economy

import (
	"errors"
	"fmt"
)

// ErrAcePending is returned when the player must value an ace before acting.
var ErrAcePending = errors.New("choose a value for your ace first")

// ErrHandOver is returned for actions on a finished hand.
var ErrHandOver = errors.New("hand is already over")

// NewDeck returns an unshuffled 52-card deck. Aces are 1 and face cards 10.
func NewDeck() []int {
	deck := make([]int, 0, 52)
	for i := 0; i < 4; i++ {
		deck = append(deck, 1)
		for v := 2; v <= 10; v++ {
			deck = append(deck, v)
		}
		deck = append(deck, 10, 10, 10)
	}
	return deck
}

func shuffle(r Rand, deck []int) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// BestScore counts one ace as 11 when that does not bust the hand.
func BestScore(hand []int) int {
	sum, ace := 0, false
	for _, c := range hand {
		sum += c
		if c == 1 {
			ace = true
		}
	}
	if ace && sum+10 <= 21 {
		return sum + 10
	}
	return sum
}

func hardScore(hand []int) int {
	sum := 0
	for _, c := range hand {
		sum += c
	}
	return sum
}

// Blackjack is a single hand against the dealer. With AutoAces off every
// ace the player draws has to be valued by SetAce before play continues.
type Blackjack struct {
	Amount   int64
	AutoAces bool
	Player   []int
	Dealer   []int
	Done     bool

	deck    []int
	pending []int
}

// NewBlackjack shuffles a fresh deck and deals two cards to each side.
func NewBlackjack(r Rand, amount int64, autoAces bool) *Blackjack {
	deck := NewDeck()
	shuffle(r, deck)
	return dealBlackjack(deck, amount, autoAces)
}

// dealBlackjack draws from the end of deck.
func dealBlackjack(deck []int, amount int64, autoAces bool) *Blackjack {
	b := &Blackjack{Amount: amount, AutoAces: autoAces, deck: deck}
	b.give()
	b.give()
	b.Dealer = append(b.Dealer, b.draw(), b.draw())
	return b
}

func (b *Blackjack) draw() int {
	c := b.deck[len(b.deck)-1]
	b.deck = b.deck[:len(b.deck)-1]
	return c
}

func (b *Blackjack) give() int {
	c := b.draw()
	b.Player = append(b.Player, c)
	if c == 1 && !b.AutoAces {
		b.pending = append(b.pending, len(b.Player)-1)
	}
	return c
}

// AcePending reports whether the player still has to value an ace.
func (b *Blackjack) AcePending() bool {
	return len(b.pending) > 0
}

// PlayerScore is the player's current total.
func (b *Blackjack) PlayerScore() int {
	if b.AutoAces {
		return BestScore(b.Player)
	}
	return hardScore(b.Player)
}

// DealerScore is the dealer's current total.
func (b *Blackjack) DealerScore() int {
	return BestScore(b.Dealer)
}

// SetAce values the oldest pending ace as 1 or 11.
func (b *Blackjack) SetAce(value int) error {
	if b.Done {
		return ErrHandOver
	}
	if !b.AcePending() {
		return errors.New("no ace to value")
	}
	if value != 1 && value != 11 {
		return fmt.Errorf("ace must be 1 or 11, got %d", value)
	}
	b.Player[b.pending[0]] = value
	b.pending = b.pending[1:]
	return nil
}

// Hit draws a card. It returns the losing outcome and true on a bust.
func (b *Blackjack) Hit() (Outcome, bool, error) {
	if b.Done {
		return Outcome{}, false, ErrHandOver
	}
	if b.AcePending() {
		return Outcome{}, false, ErrAcePending
	}
	b.give()
	if b.AcePending() {
		return Outcome{}, false, nil
	}
	if b.PlayerScore() > 21 {
		b.Done = true
		return b.loss(), true, nil
	}
	return Outcome{}, false, nil
}

// Stand lets the dealer draw to 17 and settles the hand. A tie is a push
// with a zero delta.
func (b *Blackjack) Stand() (Outcome, error) {
	if b.Done {
		return Outcome{}, ErrHandOver
	}
	if b.AcePending() {
		return Outcome{}, ErrAcePending
	}
	b.Done = true
	for BestScore(b.Dealer) < 17 && len(b.deck) > 0 {
		b.Dealer = append(b.Dealer, b.draw())
	}

	p, d := b.PlayerScore(), b.DealerScore()
	switch {
	case p > 21 || (d <= 21 && d > p):
		return b.loss(), nil
	case p == d:
		return Outcome{}, nil
	}
	mult := 1.0
	if p == 21 && len(b.Player) == 2 {
		mult = 1.5
	}
	win := int64(float64(b.Amount) * mult)
	return Outcome{Win: true, Delta: win, Reason: fmt.Sprintf("Blackjack win x%.1f", mult)}, nil
}

func (b *Blackjack) loss() Outcome {
	return Outcome{Delta: -b.Amount, Reason: "Blackjack loss"}
}

// Forfeit ends an unfinished hand as a loss.
func (b *Blackjack) Forfeit() (Outcome, bool) {
	if b.Done {
		return Outcome{}, false
	}
	b.Done = true
	return b.loss(), true
}
