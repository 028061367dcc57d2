package bot

import (
	"fmt"
	"log"
	"sort"

	"memer/config"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// SyncCommands registers the slash commands. With a dev guild configured the
// guild receives its own copy when global commands are disabled, and global
// duplicates left behind by earlier syncs are removed.
func (b *Bot) SyncCommands() error {
	s := b.Session
	appID := s.State.User.ID
	cfg := b.Config()

	log.Printf("Found %d application commands to sync", len(b.Commands))

	if cfg.DevGuildID != "" {
		guildCmds := []*discordgo.ApplicationCommand{}
		if cfg.DisableGlobal {
			guildCmds = b.Commands
		}
		synced, err := s.ApplicationCommandBulkOverwrite(appID, cfg.DevGuildID, guildCmds)
		if err != nil {
			log.Printf("Failed to sync dev guild %s commands: %v", cfg.DevGuildID, err)
		} else {
			log.Printf("Synced %d commands to dev guild %s", len(synced), cfg.DevGuildID)
		}
		if err := removeDuplicateGlobals(s, appID); err != nil {
			log.Printf("Failed to clean up global commands: %v", err)
		}
	}

	globalCmds := b.Commands
	if cfg.DisableGlobal {
		globalCmds = []*discordgo.ApplicationCommand{}
	}
	synced, err := s.ApplicationCommandBulkOverwrite(appID, "", globalCmds)
	if err != nil {
		return fmt.Errorf("failed to sync global commands: %w", err)
	}
	log.Printf("Synced %d commands globally", len(synced))
	return nil
}

func removeDuplicateGlobals(s *discordgo.Session, appID string) error {
	cmds, err := s.ApplicationCommands(appID, "")
	if err != nil {
		return err
	}
	for _, cmd := range duplicateCommands(cmds) {
		if err := s.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			log.Printf("Failed to delete duplicate global command %s (%s): %v", cmd.Name, cmd.ID, err)
			continue
		}
		log.Printf("Removed duplicate global command %s (%s)", cmd.Name, cmd.ID)
	}
	return nil
}

// duplicateCommands returns every command whose name already appeared
// earlier in cmds under another ID.
func duplicateCommands(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	seen := make(map[string]string)
	var dups []*discordgo.ApplicationCommand
	for _, c := range cmds {
		if id, ok := seen[c.Name]; ok && id != c.ID {
			dups = append(dups, c)
			continue
		}
		seen[c.Name] = c.ID
	}
	return dups
}

// NewRESTSession builds a session for one-off REST calls from the CLI.
func NewRESTSession() (*discordgo.Session, string, error) {
	config.LoadConfig()
	token := viper.GetString("discord_token")
	if token == "" {
		return nil, "", fmt.Errorf("no bot token provided, set DISCORD_TOKEN")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, "", fmt.Errorf("error creating Discord session: %w", err)
	}
	me, err := s.User("@me")
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve application id: %w", err)
	}
	return s, me.ID, nil
}

// ListCommands returns the registered command names, sorted. An empty
// guildID lists global commands.
func ListCommands(s *discordgo.Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	cmds, err := s.ApplicationCommands(appID, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds, nil
}

// ClearCommands deletes every command in scope and returns how many were
// removed.
func ClearCommands(s *discordgo.Session, appID, guildID string) (int, error) {
	cmds, err := s.ApplicationCommands(appID, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list commands: %w", err)
	}
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return 0, fmt.Errorf("failed to clear commands: %w", err)
	}
	return len(cmds), nil
}
