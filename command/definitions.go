package command

import "github.com/bwmarrin/discordgo"

func keywordOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "keyword",
		Description: "Optional keyword to search for",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    false,
	}
}

func kindOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "kind",
		Description: "Which list to change",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "SFW", Value: "sfw"},
			{Name: "NSFW", Value: "nsfw"},
		},
	}
}

func subredditOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:        "name",
		Description: "Subreddit name, without r/",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
	}
}

// MemeCommand defines the structure for the /meme command.
type MemeCommand struct{}

// Definition returns the application command definition.
func (c *MemeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "meme",
		Description: "Fetch a SFW meme",
		Options:     []*discordgo.ApplicationCommandOption{keywordOption()},
	}
}

// NSFWMemeCommand defines the structure for the /nsfwmeme command.
type NSFWMemeCommand struct{}

// Definition returns the application command definition.
func (c *NSFWMemeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "nsfwmeme",
		Description: "Fetch a NSFW meme",
		Options:     []*discordgo.ApplicationCommandOption{keywordOption()},
	}
}

// SubredditCommand defines the structure for the /r_ command.
type SubredditCommand struct{}

// Definition returns the application command definition.
func (c *SubredditCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "r_",
		Description: "Fetch a meme from a specific subreddit",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "subreddit",
				Description: "Subreddit to pull from, without r/",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			keywordOption(),
		},
	}
}

// DashboardCommand defines the structure for the /dashboard command.
type DashboardCommand struct{}

// Definition returns the application command definition.
func (c *DashboardCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "dashboard",
		Description: "Show a stats dashboard",
	}
}

// HelpCommand defines the structure for the /help command.
type HelpCommand struct{}

// Definition returns the application command definition.
func (c *HelpCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "Show all available commands",
	}
}

// StoreCommand defines the structure for the /store command.
type StoreCommand struct{}

// Definition returns the application command definition.
func (c *StoreCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "store",
		Description: "Open the store: check your balance or buy items",
	}
}

// GambleCommand defines the structure for the /gamble command.
type GambleCommand struct{}

// Definition returns the application command definition.
func (c *GambleCommand) Definition() *discordgo.ApplicationCommand {
	minAmount := 1.0
	minLimit, maxLimit := 1.0, 20.0
	return &discordgo.ApplicationCommand{
		Name:        "gamble",
		Description: "Play a gambling game with your coins",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "game",
				Description: "Which game to play",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Coin Flip", Value: "flip"},
					{Name: "High-Low", Value: "highlow"},
					{Name: "Dice Roll", Value: "roll"},
					{Name: "Slots", Value: "slots"},
					{Name: "Crash", Value: "crash"},
					{Name: "Blackjack", Value: "blackjack"},
					{Name: "Daily Lottery", Value: "lottery"},
					{Name: "Transaction History", Value: "history"},
					{Name: "Win Rates", Value: "winrate"},
				},
			},
			{
				Name:        "amount",
				Description: "How many coins to wager",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
				MinValue:    &minAmount,
			},
			{
				Name:        "auto_aces",
				Description: "Blackjack: count aces automatically",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Required:    false,
			},
			{
				Name:        "limit",
				Description: "History: how many entries to show (max 20)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
				MinValue:    &minLimit,
				MaxValue:    maxLimit,
			},
		},
	}
}

// EntranceCommand defines the structure for the /entrance command.
type EntranceCommand struct{}

// Definition returns the application command definition.
func (c *EntranceCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "entrance",
		Description: "Manage your entrance sound",
	}
}

// BeepCommand defines the structure for the /beep command.
type BeepCommand struct{}

// Definition returns the application command definition.
func (c *BeepCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "beep",
		Description: "Play a random beep sound",
	}
}

// BeepFileCommand defines the structure for the /beepfile command.
type BeepFileCommand struct{}

// Definition returns the application command definition.
func (c *BeepFileCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "beepfile",
		Description: "Play a specific beep sound by filename",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "name",
				Description:  "Beep file to play",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

// ListBeepsCommand defines the structure for the /listbeeps command.
type ListBeepsCommand struct{}

// Definition returns the application command definition.
func (c *ListBeepsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "listbeeps",
		Description: "List available beep sounds",
	}
}

// ReloadBeepsCommand defines the structure for the /reloadbeeps command.
type ReloadBeepsCommand struct{}

// Definition returns the application command definition.
func (c *ReloadBeepsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reloadbeeps",
		Description: "Reload beep sound files from disk (admin only)",
	}
}

// MemeAdminCommand defines the structure for the /memeadmin command group.
type MemeAdminCommand struct{}

// Definition returns the application command definition.
func (c *MemeAdminCommand) Definition() *discordgo.ApplicationCommand {
	sub := discordgo.ApplicationCommandOptionSubCommand
	minSeconds := 0.0
	minVolume, maxVolume := 0.1, 2.0
	return &discordgo.ApplicationCommand{
		Name:        "memeadmin",
		Description: "Meme bot administration",
		Options: []*discordgo.ApplicationCommandOption{
			{Name: "ping", Description: "Check bot latency", Type: sub},
			{Name: "uptime", Description: "Show bot uptime", Type: sub},
			{
				Name:        "addsubreddit",
				Description: "Add a subreddit to the SFW or NSFW list",
				Type:        sub,
				Options:     []*discordgo.ApplicationCommandOption{kindOption(), subredditOption()},
			},
			{
				Name:        "removesubreddit",
				Description: "Remove a subreddit from the SFW or NSFW list",
				Type:        sub,
				Options:     []*discordgo.ApplicationCommandOption{kindOption(), subredditOption()},
			},
			{Name: "validatesubreddits", Description: "Check every configured subreddit against Reddit", Type: sub},
			{Name: "reset_voice_error", Description: "Reset the voice error state for this server", Type: sub},
			{
				Name:        "set_idle_timeout",
				Description: "Set the voice idle timeout in seconds, 0 disables it",
				Type:        sub,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "seconds",
						Description: "Seconds of silence before leaving (min 10, 0 to disable)",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Required:    true,
						MinValue:    &minSeconds,
					},
				},
			},
			{
				Name:        "toggle_gambling",
				Description: "Enable or disable gambling on this server",
				Type:        sub,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "state",
						Description: "on or off",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "on", Value: "on"},
							{Name: "off", Value: "off"},
						},
					},
				},
			},
			{
				Name:        "setentrance",
				Description: "Set a user's entrance sound",
				Type:        sub,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Description: "User to set the entrance for",
						Type:        discordgo.ApplicationCommandOptionUser,
						Required:    true,
					},
					{
						Name:         "file",
						Description:  "Sound file",
						Type:         discordgo.ApplicationCommandOptionString,
						Required:     true,
						Autocomplete: true,
					},
					{
						Name:        "volume",
						Description: "Playback volume, 1.0 is normal",
						Type:        discordgo.ApplicationCommandOptionNumber,
						Required:    false,
						MinValue:    &minVolume,
						MaxValue:    maxVolume,
					},
				},
			},
			{Name: "cacheinfo", Description: "Show meme and audio cache stats", Type: sub},
			{Name: "reloadsounds", Description: "Reload beep and entrance sounds from disk", Type: sub},
		},
	}
}
