package database

import (
	"context"
	"path/filepath"
	"testing"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStats(t *testing.T) (*StatsStore, *MessageStore) {
	t.Helper()
	db, err := OpenStatsDB(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStatsStore(db), NewMessageStore(db)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	stats, msgs := openTestStats(t)

	require.NoError(t, stats.UpdateStats(ctx, "u1", "Cat", "memes", false))
	require.NoError(t, stats.UpdateStats(ctx, "u1", "", "memes", true))
	require.NoError(t, stats.UpdateStats(ctx, "u2", "cat", "funny", false))

	msgs.Register(models.MemeMessage{MessageID: "m1", ChannelID: "c1", GuildID: "g1", PostID: "p1", Title: "one"})
	_, err := msgs.Flush(ctx)
	require.NoError(t, err)
	require.NoError(t, stats.TrackReaction(ctx, "m1", "😂"))
	require.NoError(t, stats.TrackReaction(ctx, "m1", "😂"))
	require.NoError(t, stats.TrackReaction(ctx, "m1", "🔥"))

	d, err := stats.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.TotalMemes)
	assert.Equal(t, int64(1), d.NSFWMemes)
	assert.Equal(t, int64(2), d.UserCounts["u1"])
	assert.Equal(t, int64(2), d.SubredditCounts["memes"])
	assert.Equal(t, int64(2), d.KeywordCounts["cat"])
	require.Len(t, d.TopReactions, 1)
	assert.Equal(t, int64(3), d.TopReactions[0].Count)
}

func TestTopCounts(t *testing.T) {
	top := TopCounts(map[string]int64{"a": 1, "b": 3, "c": 3, "d": 2}, 3)
	assert.Equal(t, []Count{{"b", 3}, {"c", 3}, {"d", 2}}, top)
}

func TestRecentPostIDsIncludesPending(t *testing.T) {
	ctx := context.Background()
	_, msgs := openTestStats(t)

	msgs.Register(models.MemeMessage{MessageID: "m1", ChannelID: "c1", PostID: "p1", Timestamp: 100})
	msgs.Register(models.MemeMessage{MessageID: "m2", ChannelID: "c1", PostID: "p2", Timestamp: 200})
	n, err := msgs.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, msgs.Pending())

	msgs.Register(models.MemeMessage{MessageID: "m3", ChannelID: "c1", PostID: "p3", Timestamp: 300})
	msgs.Register(models.MemeMessage{MessageID: "m4", ChannelID: "c2", PostID: "p4", Timestamp: 300})

	ids, err := msgs.RecentPostIDs(ctx, "c1", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids)

	ids, err = msgs.RecentPostIDs(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2"}, ids)

	sent, err := msgs.HasPostBeenSent(ctx, "c2", "p4")
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = msgs.HasPostBeenSent(ctx, "c2", "p1")
	require.NoError(t, err)
	assert.False(t, sent)
}
