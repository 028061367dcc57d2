package database

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "economy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpdateBalance(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	bal, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	bal, err = s.UpdateBalance(ctx, "u1", 10, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal)

	bal, err = s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal)

	txs, err := s.GetTransactions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "test", txs[0].Reason)
	assert.Equal(t, int64(10), txs[0].Delta)
}

func TestConcurrentDailyClaimsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var claimed atomic.Int32
	var wg conc.WaitGroup
	for n := 0; n < 10; n++ {
		wg.Go(func() {
			ok, err := s.TryDailyBonus(ctx, "u1", 25)
			assert.NoError(t, err)
			if ok {
				claimed.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), claimed.Load())
	bal, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), bal)
}

func TestDailyBonusResetsNextDay(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	ok, err := s.TryDailyBonus(ctx, "u1", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryDailyBonus(ctx, "u1", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	day = day.Add(24 * time.Hour)
	ok, err = s.TryDailyBonus(ctx, "u1", 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLotteryEntries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	day := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	_, err := s.UpdateBalance(ctx, "u1", 50, "seed")
	require.NoError(t, err)

	ok, err := s.TryLottery(ctx, "u1", 10)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.TryLottery(ctx, "u1", 10)
	require.NoError(t, err)
	assert.False(t, ok)

	bal, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), bal)

	// The midnight draw sees yesterday's tickets.
	day = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	entries, err := s.TodayLotteryEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, entries)

	require.NoError(t, s.ClearLotteryEntries(ctx))
	entries, err = s.TodayLotteryEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWinLossCounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, tx := range []struct {
		delta  int64
		reason string
	}{
		{10, "Flip win (heads)"},
		{-10, "Flip loss (tails)"},
		{-10, "Flip loss (heads)"},
		{15, "Crash win x2.50"},
		{-5, "Crash loss x1.20"},
		{3, "Used /meme"},
	} {
		_, err := s.UpdateBalance(ctx, "u1", tx.delta, tx.reason)
		require.NoError(t, err)
	}

	counts, err := s.GetWinLossCounts(ctx, "u1")
	require.NoError(t, err)
	byGame := map[string][2]int{}
	for _, c := range counts {
		byGame[c.Game] = [2]int{c.Wins, c.Losses}
	}
	assert.Equal(t, [2]int{1, 2}, byGame["Coin Flip"])
	assert.Equal(t, [2]int{1, 1}, byGame["Crash"])
	assert.Equal(t, [2]int{0, 0}, byGame["Blackjack"])
}

func TestTopBalancesAndGambling(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for uid, coins := range map[string]int64{"a": 5, "b": 50, "c": 20} {
		_, err := s.UpdateBalance(ctx, uid, coins, "seed")
		require.NoError(t, err)
	}
	top, err := s.GetTopBalances(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].UserID)
	assert.Equal(t, "c", top[1].UserID)

	enabled, err := s.IsGamblingEnabled(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetGambling(ctx, "g1", false))
	enabled, err = s.IsGamblingEnabled(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, enabled)
}
