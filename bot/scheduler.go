package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"memer/economy"
	"memer/utils"
	"memer/web"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
)

var c *cron.Cron

func every(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	return "@every " + d.String()
}

// startScheduler starts the cron jobs.
func startScheduler(b *Bot) {
	log.Println("Initializing scheduler...")
	c = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	cfg := b.Config()

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"cache refresh", every(cfg.Cache.RefreshInterval), func() { b.Cache.Refresh(b.ctx) }},
		{"cache flush", every(cfg.Cache.FlushInterval), func() { b.Cache.Flush(b.ctx) }},
		{"lottery draw", "@midnight", func() { b.drawLottery() }},
		{"stats export", "@every 1m", func() { b.exportStats() }},
		{"subreddit persist", "@every 1m", func() {
			if err := b.Subreddits.Persist(); err != nil {
				log.Printf("Error saving guild subreddits: %v", err)
			}
			b.Warm.SetSubreddits(b.allSubreddits())
		}},
		{"message flush", "@every 5s", func() {
			if _, err := b.Messages.Flush(b.ctx); err != nil {
				log.Printf("Error flushing meme messages: %v", err)
			}
		}},
		{"voice retry drain", "@every 30s", b.Voice.FlushRetries},
	}

	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			log.Fatalf("Could not set up cron job %s: %v", j.name, err)
		}
		log.Printf("Scheduled %s (%s)", j.name, j.spec)
	}
	c.Start()

	go b.exportStats()
}

// stopScheduler stops the cron jobs.
func stopScheduler() {
	if c != nil {
		<-c.Stop().Done()
		log.Println("Scheduler stopped.")
	}
}

func (b *Bot) exportStats() {
	ctx, cancel := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancel()
	if err := web.ExportStats(ctx, b.Stats, b.Config().StatsFile); err != nil {
		log.Printf("Error exporting stats: %v", err)
	}
}

func (b *Bot) drawLottery() {
	ctx, cancel := context.WithTimeout(b.ctx, 30*time.Second)
	defer cancel()

	prize := b.Rewards.Config().LotteryPrize
	winner, err := economy.DrawLottery(ctx, b.Economy, economy.DefaultRand, prize)
	if err != nil {
		utils.Error("Lottery", "Draw", err.Error())
		return
	}
	if winner == "" {
		log.Println("Lottery draw: no entries today")
		return
	}
	utils.Info("Lottery", "Draw", fmt.Sprintf("<@%s> won %d", winner, prize))

	if ch := b.announceChannel(); ch != "" {
		msg := fmt.Sprintf("🎉 Congrats <@%s>! You won the daily lottery! 💰", winner)
		if _, err := b.Session.ChannelMessageSend(ch, msg); err != nil {
			log.Printf("Failed to announce lottery winner in %s: %v", ch, err)
		}
	}

	dm, err := b.Session.UserChannelCreate(winner)
	if err != nil {
		log.Printf("Failed to open DM with lottery winner %s: %v", winner, err)
		return
	}
	if _, err := b.Session.ChannelMessageSend(dm.ID, "You won the daily lottery! Congrats!"); err != nil {
		log.Printf("Failed to DM lottery winner %s: %v", winner, err)
	}
}

// announceChannel prefers the channel of the latest /gamble, then the first
// text channel of the first guild the bot can post in.
func (b *Bot) announceChannel() string {
	if ch := b.LastGambleChannel(); ch != "" {
		return ch
	}
	state := b.Session.State
	if state == nil || state.User == nil {
		return ""
	}
	state.RLock()
	guilds := state.Guilds
	state.RUnlock()
	if len(guilds) == 0 {
		return ""
	}
	for _, ch := range guilds[0].Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := state.UserChannelPermissions(state.User.ID, ch.ID)
		if err == nil && perms&discordgo.PermissionSendMessages != 0 {
			return ch.ID
		}
	}
	return ""
}
