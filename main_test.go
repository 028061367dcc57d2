package main

import (
	"bytes"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	assert.Equal(t, "global", scope(""))
	assert.Equal(t, "guild 42", scope("42"))
}

func TestPrintCommands(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printCommands(&buf, "", []*discordgo.ApplicationCommand{
		{ID: "1", Name: "meme", Description: "Get a meme"},
		{ID: "2", Name: "gamble", Description: "Bet coins"},
	})
	out := buf.String()
	assert.Contains(t, out, "2 global commands")
	assert.Contains(t, out, "/meme")
	assert.Contains(t, out, "Bet coins")
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["commands"])
	assert.NotNil(t, commandsCmd.PersistentFlags().Lookup("guild"))
}
