package handlers

import (
	"log"

	"memer/bot"

	"github.com/bwmarrin/discordgo"
)

// commandPermissions lists the commands that need more than guest access.
var commandPermissions = map[string]string{
	"memeadmin":   "admin",
	"reloadbeeps": "admin",
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, r *router) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handlers := map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"meme":        HandleMeme(b, false),
		"nsfwmeme":    HandleMeme(b, true),
		"r_":          HandleSubreddit(b),
		"dashboard":   HandleDashboard(b),
		"help":        HandleHelp(b),
		"store":       HandleStore(b),
		"gamble":      HandleGamble(r.gamble),
		"entrance":    HandleEntrance(r.entrance),
		"beep":        HandleBeep(b),
		"beepfile":    HandleBeepFile(b),
		"listbeeps":   HandleListBeeps(b),
		"reloadbeeps": HandleReloadBeeps(b),
		"memeadmin":   HandleMemeAdmin(b),
	}

	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		commandName := i.ApplicationCommandData().Name
		if requiredLevel, ok := commandPermissions[commandName]; ok {
			if !b.Auth.CheckPermission(i, requiredLevel) {
				respondEphemeral(s, i, "❌ Only admins can use this command.")
				return
			}
		}

		handler, ok := handlers[commandName]
		if !ok {
			log.Printf("Unknown command: %s", commandName)
			respondEphemeral(s, i, "❌ Unknown command.")
			return
		}
		handler(s, i)
	}
}
