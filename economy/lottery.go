package economy

import (
	"context"
	"fmt"
)

// LotteryStore is the subset of database.Store the draw needs.
type LotteryStore interface {
	TodayLotteryEntries(ctx context.Context) ([]string, error)
	ClearLotteryEntries(ctx context.Context) error
	UpdateBalance(ctx context.Context, uid string, delta int64, reason string) (int64, error)
}

// DrawLottery pays prize to a random ticket holder and clears all tickets.
// It returns an empty winner when nobody entered.
func DrawLottery(ctx context.Context, store LotteryStore, r Rand, prize int64) (string, error) {
	entries, err := store.TodayLotteryEntries(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	winner := entries[r.IntN(len(entries))]
	if _, err := store.UpdateBalance(ctx, winner, prize, "Lottery win"); err != nil {
		return "", fmt.Errorf("failed to pay lottery winner %s: %w", winner, err)
	}
	if err := store.ClearLotteryEntries(ctx); err != nil {
		return winner, err
	}
	return winner, nil
}
