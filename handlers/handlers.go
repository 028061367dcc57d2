package handlers

import (
	"context"
	"log"

	"memer/bot"

	"github.com/bwmarrin/discordgo"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	b.Session.AddHandler(InteractionCreate(b))
	b.Session.AddHandler(OnVoiceStateUpdate(b))
	b.Session.AddHandler(OnReactionAdd(b))

	// Drop voice connections that survived a reconnect.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		for _, gid := range b.Player.ConnectedGuilds() {
			if err := b.Player.Disconnect(gid); err != nil {
				log.Printf("Error cleaning up voice in %s: %v", gid, err)
			}
		}
		log.Printf("Logged in as: %v (%d guilds)", s.State.User.Username, len(r.Guilds))
	})
}

// OnReactionAdd counts reactions on sent memes.
func OnReactionAdd(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if s.State.User != nil && r.UserID == s.State.User.ID {
			return
		}
		ctx, cancel := context.WithTimeout(b.Context(), adminOpTimeout)
		defer cancel()
		if err := b.Stats.TrackReaction(ctx, r.MessageID, r.Emoji.APIName()); err != nil {
			log.Printf("Error tracking reaction on %s: %v", r.MessageID, err)
		}
	}
}
