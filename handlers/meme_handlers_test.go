package handlers

import (
	"errors"
	"strings"
	"testing"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardEmbedEmpty(t *testing.T) {
	embed := dashboardEmbed(models.DashboardStats{}, nil, "coins")
	require.Len(t, embed.Fields, 8)
	for _, f := range embed.Fields[3:] {
		assert.Equal(t, "None", f.Value, f.Name)
	}
	assert.Equal(t, "0", embed.Fields[0].Value)
}

func TestDashboardEmbedTopFive(t *testing.T) {
	stats := models.DashboardStats{
		TotalMemes: 12,
		UserCounts: map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6},
	}
	embed := dashboardEmbed(stats, []models.Balance{{UserID: "a", Coins: 99}}, "coins")

	users := strings.Split(embed.Fields[3].Value, "\n")
	require.Len(t, users, 5)
	assert.Equal(t, "<@f>: 6", users[0])
	assert.Equal(t, "<@a>: 99 coins", embed.Fields[7].Value)
}

func TestJoinLimited(t *testing.T) {
	assert.Equal(t, "None", joinLimited(nil, ", ", 100))
	assert.Equal(t, "a, b", joinLimited([]string{"a", "b"}, ", ", 100))

	long := joinLimited([]string{strings.Repeat("x", 8), strings.Repeat("y", 8)}, ", ", 14)
	assert.Equal(t, "xxxxxxxx …", long)
}

func TestHelpEmbedListsEverything(t *testing.T) {
	embed := helpEmbed([]string{"memes"}, []string{"nsfwmemes"}, []string{"boop.mp3"})
	require.Len(t, embed.Fields, 4)
	assert.Contains(t, embed.Fields[0].Value, "/gamble")
	assert.Contains(t, embed.Fields[1].Value, "reset_voice_error")
	assert.Contains(t, embed.Fields[2].Value, "memes")
	assert.Equal(t, "boop.mp3", embed.Fields[3].Value)
}

func TestNoMemeMessage(t *testing.T) {
	assert.Equal(t, "✅ No fresh memes right now—try again later!", noMemeMessage(errNoFresh, false))
	assert.Equal(t, "✅ No fresh NSFW memes right now—try again later!", noMemeMessage(errNoFresh, true))
	assert.Equal(t, "✅ No memes found—try again later!", noMemeMessage(errors.New("x"), false))
}

func TestKeywordApology(t *testing.T) {
	assert.Contains(t, keywordApology("cat"), "`cat`")
}
