package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"memer/config"
	"memer/database"
	"memer/economy"
	"memer/meme"
	"memer/memecache"
	"memer/models"
	"memer/reddit"
	"memer/utils"
	"memer/voice"
	"memer/web"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Bot encapsulates the bot's state and every long-lived service.
type Bot struct {
	Session   *discordgo.Session
	Settings  models.Settings
	Commands  []*discordgo.ApplicationCommand
	Auth      *utils.Auth
	StartedAt time.Time

	Reddit     reddit.Client
	Subreddits *database.GuildSubreddits
	Cache      *memecache.Service
	Warm       *meme.WarmBuffer
	Fetcher    *meme.Fetcher

	StatsDB  *sql.DB
	Stats    *database.StatsStore
	Messages *database.MessageStore
	Economy  *database.Store
	Rewards  *economy.Rewarder

	Player     *voice.DiscordPlayer
	AudioCache *voice.AudioCache
	Voice      *voice.Queue
	Idle       *voice.IdleMonitor
	Beeps      *voice.Library
	Sounds     *voice.Library
	Entrances  *database.EntranceStore

	Web *web.Server

	mu                sync.Mutex
	lastGambleChannel string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot loads the configuration and builds every service. Nothing talks
// to Discord until Start.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	token := viper.GetString("discord_token")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided, set DISCORD_TOKEN")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates

	auth, err := utils.NewAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to load command permissions: %w", err)
	}

	b := &Bot{
		Session:   dg,
		Settings:  settings,
		Auth:      auth,
		StartedAt: time.Now(),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	if err := b.initServices(); err != nil {
		b.closeStores()
		return nil, err
	}
	return b, nil
}

func ensureDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

func (b *Bot) initServices() error {
	st := b.Settings
	if err := ensureDirs("sounds", "data", "logs", st.Voice.SoundFolder, st.Voice.BeepFolder); err != nil {
		return err
	}

	subs, err := database.LoadGuildSubreddits(st.SubredditsFile)
	if err != nil {
		return err
	}
	b.Subreddits = subs

	b.Reddit = reddit.NewHTTPClient(st.Reddit)
	b.Cache = memecache.NewService(b.Reddit, subs, st.Cache)
	if err := b.Cache.Init(); err != nil {
		return err
	}
	b.Warm = meme.NewWarmBuffer(st.Cache)
	b.Fetcher = meme.NewFetcher(b.Reddit, b.Warm, st.Cache, st.Reddit)

	if b.StatsDB, err = database.OpenStatsDB(st.StatsDB); err != nil {
		return err
	}
	b.Stats = database.NewStatsStore(b.StatsDB)
	b.Messages = database.NewMessageStore(b.StatsDB)

	if b.Economy, err = database.OpenStore(st.Rewards.DBPath); err != nil {
		return err
	}
	b.Rewards = economy.NewRewarder(b.Economy, st.Rewards)

	if b.AudioCache, err = voice.NewAudioCache(st.Voice.AudioCacheSize); err != nil {
		return err
	}
	b.Player = voice.NewDiscordPlayer(b.Session, b.AudioCache, 500*time.Millisecond)
	errs := voice.NewErrorManager(st.Voice.MaxFailures, st.Voice.MaxTotalFailures, st.Voice.FailureCooldown)
	b.Voice = voice.NewQueue(b.Player, errs, st.Voice.ChannelCooldown, st.Voice.UserCooldown)
	b.Idle = voice.NewIdleMonitor(b.Player, st.Voice.IdleTimeout)
	b.Voice.OnPlay = b.Idle.Touch

	if b.Beeps, err = voice.NewLibrary(st.Voice.BeepFolder, voice.BeepExts); err != nil {
		return err
	}
	if b.Sounds, err = voice.NewLibrary(st.Voice.SoundFolder, voice.AudioExts); err != nil {
		return err
	}
	b.Entrances = database.NewEntranceStore(st.Voice.EntranceData)

	b.Web = web.NewServer(st.StatsAddr, st.StatsFile)
	return nil
}

// Context is cancelled when the bot stops.
func (b *Bot) Context() context.Context {
	return b.ctx
}

// SetLastGambleChannel remembers where the lottery winner is announced.
func (b *Bot) SetLastGambleChannel(channelID string) {
	b.mu.Lock()
	b.lastGambleChannel = channelID
	b.mu.Unlock()
}

// LastGambleChannel returns the channel of the latest /gamble.
func (b *Bot) LastGambleChannel() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastGambleChannel
}

// Config returns the active settings.
func (b *Bot) Config() models.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Settings
}

// RegisterCommands records the slash command definitions to sync.
func (b *Bot) RegisterCommands(commands []*discordgo.ApplicationCommand) {
	b.Commands = append(b.Commands, commands...)
}

// ApplySettings hands a reloaded configuration to the services that
// support hot reload.
func (b *Bot) ApplySettings(s models.Settings) {
	b.mu.Lock()
	b.Settings = s
	b.mu.Unlock()
	b.Cache.Apply(s.Cache)
	b.Fetcher.Apply(s.Cache, s.Reddit)
	b.Rewards.Apply(s.Rewards)
	log.Printf("Applied reloaded settings")
}

// Start opens the bot's session, syncs commands and starts the background
// workers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	adminChannel := b.Settings.AdminChannelID
	if adminChannel == "" {
		adminChannel = viper.GetString("bot.adminChannelId")
	}
	utils.InitLogger(b.Session, adminChannel)

	if err := b.SyncCommands(); err != nil {
		log.Printf("Error syncing commands: %v", err)
	}

	b.Warm.Start(b.ctx, b.Reddit, b.allSubreddits())
	b.Idle.Start(b.ctx)
	b.Web.Start()
	startScheduler(b)
	config.Watch(b.ApplySettings)

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

func (b *Bot) allSubreddits() []string {
	return append(b.Subreddits.All(models.KindSFW), b.Subreddits.All(models.KindNSFW)...)
}

// Stop shuts everything down in reverse start order.
func (b *Bot) Stop() {
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Web.Shutdown(ctx); err != nil {
		log.Printf("Error stopping stats server: %v", err)
	}

	b.Idle.Stop()
	b.Warm.Stop()
	b.cancel()
	b.Voice.Close()
	for _, gid := range b.Player.ConnectedGuilds() {
		b.Player.Disconnect(gid)
	}

	if b.Session != nil {
		b.Session.Close()
	}

	if _, err := b.Messages.Flush(ctx); err != nil {
		log.Printf("Error flushing meme messages: %v", err)
	}
	if err := b.Subreddits.Persist(); err != nil {
		log.Printf("Error saving guild subreddits: %v", err)
	}
	b.closeStores()
	fmt.Println("Bot stopped gracefully.")
}

func (b *Bot) closeStores() {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			log.Printf("Error closing meme cache: %v", err)
		}
	}
	if b.StatsDB != nil {
		b.StatsDB.Close()
	}
	if b.Economy != nil {
		b.Economy.Close()
	}
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) error {
	bot, err := NewBot()
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}

	bot.RegisterCommands(commands)

	if err := bot.Start(registerHandlers); err != nil {
		bot.closeStores()
		return fmt.Errorf("error starting bot: %w", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
	return nil
}
