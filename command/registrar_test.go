package command

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandDefinitionsAreUnique(t *testing.T) {
	defs := GetCommandDefinitions()
	require.Len(t, defs, len(AllCommands))

	seen := make(map[string]bool)
	for _, d := range defs {
		assert.False(t, seen[d.Name], "duplicate command %s", d.Name)
		seen[d.Name] = true
		assert.NotEmpty(t, d.Description, d.Name)
		assert.LessOrEqual(t, len(d.Description), 100, d.Name)
	}
}

func TestGambleOffersEveryGame(t *testing.T) {
	def := (&GambleCommand{}).Definition()
	var games []string
	for _, ch := range def.Options[0].Choices {
		games = append(games, ch.Value.(string))
	}
	assert.ElementsMatch(t, []string{
		"flip", "highlow", "roll", "slots", "crash", "blackjack", "lottery", "history", "winrate",
	}, games)
}

func TestMemeAdminSubcommands(t *testing.T) {
	def := (&MemeAdminCommand{}).Definition()
	var names []string
	for _, o := range def.Options {
		assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, o.Type)
		names = append(names, o.Name)
	}
	assert.Contains(t, names, "reset_voice_error")
	assert.Contains(t, names, "set_idle_timeout")
	assert.Contains(t, names, "toggle_gambling")
	assert.Len(t, names, 11)
}
