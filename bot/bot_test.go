package bot

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateCommands(t *testing.T) {
	cmds := []*discordgo.ApplicationCommand{
		{ID: "1", Name: "meme"},
		{ID: "2", Name: "gamble"},
		{ID: "3", Name: "meme"},
		{ID: "2", Name: "gamble"},
	}
	dups := duplicateCommands(cmds)
	require.Len(t, dups, 1)
	assert.Equal(t, "3", dups[0].ID)
}

func TestEvery(t *testing.T) {
	assert.Equal(t, "@every 1m0s", every(0))
	assert.Equal(t, "@every 15m0s", every(15*time.Minute))

	_, err := cron.ParseStandard(every(30 * time.Second))
	assert.NoError(t, err)
}

func TestLastGambleChannel(t *testing.T) {
	b := &Bot{}
	assert.Empty(t, b.LastGambleChannel())
	b.SetLastGambleChannel("123")
	assert.Equal(t, "123", b.LastGambleChannel())
}
