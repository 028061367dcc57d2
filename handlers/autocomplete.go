package handlers

import (
	"log"

	"memer/bot"
	"memer/voice"

	"github.com/bwmarrin/discordgo"
)

const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func HandleAutocomplete(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		data := i.ApplicationCommandData()
		switch data.Name {
		case "beepfile":
			if opt := focused(data.Options); opt != nil && opt.Name == "name" {
				respondSoundChoices(s, i, b.Beeps, opt.StringValue())
			}
		case "memeadmin":
			if len(data.Options) == 0 || data.Options[0].Name != "setentrance" {
				return
			}
			if opt := focused(data.Options[0].Options); opt != nil && opt.Name == "file" {
				respondSoundChoices(s, i, b.Sounds, opt.StringValue())
			}
		}
	}
}

func focused(opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range opts {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

func respondSoundChoices(s *discordgo.Session, i *discordgo.InteractionCreate, lib *voice.Library, query string) {
	names := lib.Search(query, maxChoices)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for _, name := range names {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, 100),
			Value: name,
		})
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		log.Printf("Error responding to autocomplete interaction: %v", err)
	}
}
