package handlers

import (
	"log"
	"strings"

	"memer/bot"

	"github.com/bwmarrin/discordgo"
)

// router holds the interactive message state shared by commands and their
// components.
type router struct {
	gamble   *gambleTables
	entrance *entranceUI
}

func newRouter(b *bot.Bot) *router {
	return &router{
		gamble:   newGambleTables(b),
		entrance: newEntranceUI(b),
	}
}

// InteractionCreate handles slash commands, autocomplete and components.
func InteractionCreate(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	r := newRouter(b)
	commands := CommandDispatcher(b, r)
	autocomplete := HandleAutocomplete(b)
	gamble := HandleGambleComponent(r.gamble)
	store := HandleStoreComponent(b)
	entrance := HandleEntranceComponent(r.entrance)

	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			commands(s, i)
		case discordgo.InteractionApplicationCommandAutocomplete:
			autocomplete(s, i)
		case discordgo.InteractionMessageComponent:
			customID := i.MessageComponentData().CustomID
			prefix, _, _ := strings.Cut(customID, ":")
			switch {
			case strings.HasPrefix(prefix, gamblePrefix):
				gamble(s, i)
			case prefix == storePrefix:
				store(s, i)
			case prefix == entrancePrefix:
				entrance(s, i)
			default:
				log.Printf("Unhandled component %s", customID)
			}
		}
	}
}
