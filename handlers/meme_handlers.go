package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"memer/bot"
	"memer/database"
	"memer/economy"
	"memer/memecache"
	"memer/models"
	"memer/reddit"
	"memer/utils"

	"github.com/bwmarrin/discordgo"
)

const memeTimeout = 60 * time.Second

func newPipeline(b *bot.Bot) *memePipeline {
	return &memePipeline{
		src:         b.Fetcher,
		recent:      b.Messages,
		warm:        b.Warm,
		fallbackDir: b.Config().Cache.FallbackDir,
	}
}

func isNSFWChannel(s *discordgo.Session, channelID string) bool {
	ch, err := s.State.Channel(channelID)
	if err != nil {
		if ch, err = s.Channel(channelID); err != nil {
			log.Printf("Failed to look up channel %s: %v", channelID, err)
			return false
		}
	}
	return ch.NSFW
}

// HandleMeme serves /meme, or /nsfwmeme when nsfw is set.
func HandleMeme(b *bot.Bot, nsfw bool) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		command, kind := "meme", models.KindSFW
		if nsfw {
			command, kind = "nsfwmeme", models.KindNSFW
		}
		opts := optionMap(i.ApplicationCommandData().Options)
		keyword := strings.TrimSpace(stringOpt(opts, "keyword"))
		user := utils.InteractionUser(i)
		log.Printf("/%s invoked: guild=%s user=%s keyword=%q", command, i.GuildID, user.ID, keyword)

		if nsfw && !isNSFWChannel(s, i.ChannelID) {
			respondEphemeral(s, i, "🔞 You can only use NSFW memes in NSFW channels.")
			return
		}
		if err := deferResponse(s, i, false); err != nil {
			log.Printf("Error deferring /%s: %v", command, err)
		}

		ctx, cancel := context.WithTimeout(b.Context(), memeTimeout)
		defer cancel()

		pick, err := newPipeline(b).Pick(ctx, memeQuery{
			ChannelID:  i.ChannelID,
			Subreddits: b.Subreddits.Get(i.GuildID, kind),
			Keyword:    keyword,
			NSFW:       nsfw,
			Cache:      b.Cache.Manager,
		})
		if err != nil {
			followupEphemeral(s, i, noMemeMessage(err, nsfw))
			return
		}

		content := ""
		fallback := keyword != "" && !pick.GotKeyword
		if fallback && !pick.fromCache() {
			content = keywordApology(keyword)
		}
		if !deliverMeme(ctx, b, s, i, pick, content, keyword, nsfw) {
			return
		}

		lines, err := b.Rewards.Reward(ctx, economy.RewardRequest{
			GuildID:  i.GuildID,
			UserID:   user.ID,
			Command:  command,
			Keyword:  keyword,
			Fallback: fallback,
		})
		if err != nil {
			log.Printf("Error rewarding %s for /%s: %v", user.ID, command, err)
		}
		if len(lines) > 0 {
			followupEphemeral(s, i, strings.Join(lines, "\n"))
		}
	}
}

func noMemeMessage(err error, nsfw bool) string {
	switch {
	case errors.Is(err, errNoFresh) && nsfw:
		return "✅ No fresh NSFW memes right now—try again later!"
	case errors.Is(err, errNoFresh):
		return "✅ No fresh memes right now—try again later!"
	case nsfw:
		return "✅ No NSFW memes right now—try again later!"
	default:
		return "✅ No memes found—try again later!"
	}
}

// deliverMeme sends the pick and records it. It reports whether the send
// succeeded.
func deliverMeme(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, pick memePick, content, keyword string, nsfw bool) bool {
	msg, err := sendMeme(s, i, pick, content)
	if err != nil {
		log.Printf("Error sending meme %s: %v", pick.Post.PostID, err)
		followupEphemeral(s, i, "❌ Error sending meme.")
		return false
	}
	log.Printf("Sent meme %s via %s as message %s", pick.Post.PostID, pick.Via, msg.ID)

	b.Fetcher.MarkSeen(pick.Post)
	b.Messages.Register(models.MemeMessage{
		MessageID: msg.ID,
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		URL:       pick.Post.RedditURL(),
		Title:     pick.Post.Title,
		PostID:    pick.Post.PostID,
		Timestamp: time.Now().Unix(),
	})
	user := utils.InteractionUser(i)
	if err := b.Stats.UpdateStats(ctx, user.ID, keyword, pick.Subreddit, nsfw); err != nil {
		log.Printf("Error updating meme stats: %v", err)
	}
	return true
}

// HandleSubreddit serves /r_.
func HandleSubreddit(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionMap(i.ApplicationCommandData().Options)
		name := strings.TrimPrefix(strings.TrimSpace(stringOpt(opts, "subreddit")), "r/")
		keyword := strings.TrimSpace(stringOpt(opts, "keyword"))
		user := utils.InteractionUser(i)
		log.Printf("/r_ invoked: guild=%s user=%s subreddit=%s keyword=%q", i.GuildID, user.ID, name, keyword)

		if err := deferResponse(s, i, false); err != nil {
			log.Printf("Error deferring /r_: %v", err)
		}

		ctx, cancel := context.WithTimeout(b.Context(), memeTimeout)
		defer cancel()

		about, err := b.Reddit.About(ctx, name)
		if errors.Is(err, reddit.ErrNotFound) || (err == nil && about == nil) {
			followupEphemeral(s, i, fmt.Sprintf("❌ Could not find subreddit `%s`.", name))
			return
		}
		if err != nil {
			log.Printf("Error looking up r/%s: %v", name, err)
			followupEphemeral(s, i, "❌ Error fetching meme from subreddit.")
			return
		}
		if about.Name != "" {
			name = about.Name
		}
		if about.Over18 && !isNSFWChannel(s, i.ChannelID) {
			followupEphemeral(s, i, "🔞 You can only use NSFW memes in NSFW channels.")
			return
		}

		var cache memecache.Manager = memecache.Noop{}
		if b.Subreddits.Contains(i.GuildID, models.KindSFW, name) || b.Subreddits.Contains(i.GuildID, models.KindNSFW, name) {
			cache = memecache.NoDisable{Manager: b.Cache.Manager}
		}

		pick, err := newPipeline(b).PickFrom(ctx, memeQuery{
			ChannelID:  i.ChannelID,
			Subreddits: []string{name},
			Keyword:    keyword,
			NSFW:       about.Over18,
			Cache:      cache,
		})
		switch {
		case errors.Is(err, errNoFresh):
			followupEphemeral(s, i, fmt.Sprintf("✅ No fresh posts in r/%s right now—try again later!", name))
			return
		case err != nil:
			followupEphemeral(s, i, fmt.Sprintf("✅ No memes found in r/%s right now—try again later!", name))
			return
		}

		deliverMeme(ctx, b, s, i, pick, subredditContent(keyword, pick), keyword, about.Over18)
	}
}

func subredditContent(keyword string, pick memePick) string {
	if keyword == "" {
		return "Random pick 🎲"
	}
	if !pick.GotKeyword {
		return fmt.Sprintf("No results for %s; serving a random one.", keyword)
	}
	return ""
}

func countLines(counts []database.Count, label func(string) string) string {
	if len(counts) == 0 {
		return "None"
	}
	lines := make([]string, len(counts))
	for n, c := range counts {
		lines[n] = fmt.Sprintf("%s: %d", label(c.Key), c.Value)
	}
	return strings.Join(lines, "\n")
}

func mention(uid string) string { return "<@" + uid + ">" }

func plain(s string) string { return s }

// dashboardEmbed renders the stats snapshot and the richest balances.
func dashboardEmbed(stats models.DashboardStats, richest []models.Balance, coin string) *discordgo.MessageEmbed {
	reactions := "None"
	if len(stats.TopReactions) > 0 {
		lines := make([]string, len(stats.TopReactions))
		for n, m := range stats.TopReactions {
			title := m.Title
			if title == "" {
				title = "meme"
			}
			lines[n] = fmt.Sprintf("[%s](https://discord.com/channels/%s/%s/%s) — %d",
				truncate(title, 80), m.GuildID, m.ChannelID, m.MessageID, m.Count)
		}
		reactions = strings.Join(lines, "\n")
	}

	rich := "None"
	if len(richest) > 0 {
		lines := make([]string, len(richest))
		for n, bal := range richest {
			lines[n] = fmt.Sprintf("%s: %d %s", mention(bal.UserID), bal.Coins, coin)
		}
		rich = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Title:     "📊 MemeBot Dashboard",
		Color:     0x5865F2,
		Timestamp: time.Unix(stats.GeneratedAt, 0).UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "😂 Total Memes", Value: fmt.Sprint(stats.TotalMemes), Inline: true},
			{Name: "🔞 NSFW Memes", Value: fmt.Sprint(stats.NSFWMemes), Inline: true},
			{Name: "\u200b", Value: "\u200b", Inline: true},
			{Name: "🥇 Top Users", Value: countLines(database.TopCounts(stats.UserCounts, 5), mention)},
			{Name: "🌐 Top Subreddits", Value: countLines(database.TopCounts(stats.SubredditCounts, 5), plain)},
			{Name: "🔍 Top Keywords", Value: countLines(database.TopCounts(stats.KeywordCounts, 5), plain)},
			{Name: "🔥 Top Reactions", Value: reactions},
			{Name: "💰 Richest Users", Value: rich},
		},
	}
}

// HandleDashboard serves /dashboard.
func HandleDashboard(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(b.Context(), 10*time.Second)
		defer cancel()

		stats, err := b.Stats.DashboardStats(ctx)
		if err != nil {
			log.Printf("Error building dashboard: %v", err)
			respondEphemeral(s, i, "❌ Error generating dashboard.")
			return
		}
		richest, err := b.Economy.GetTopBalances(ctx, 5)
		if err != nil {
			log.Printf("Error loading top balances: %v", err)
			respondEphemeral(s, i, "❌ Error generating dashboard.")
			return
		}
		respondEmbed(s, i, dashboardEmbed(stats, richest, b.Rewards.Config().CoinName), true)
	}
}

// joinLimited joins items with sep and cuts the result to fit an embed
// field.
func joinLimited(items []string, sep string, limit int) string {
	if len(items) == 0 {
		return "None"
	}
	var sb strings.Builder
	for n, item := range items {
		next := item
		if n > 0 {
			next = sep + item
		}
		if sb.Len()+len(next) > limit-4 {
			sb.WriteString(" …")
			break
		}
		sb.WriteString(next)
	}
	return sb.String()
}

func helpEmbed(sfw, nsfw, beeps []string) *discordgo.MessageEmbed {
	user := strings.Join([]string{
		"`/meme [keyword]` Fetch a SFW meme",
		"`/nsfwmeme [keyword]` Fetch a NSFW meme",
		"`/r_ <subreddit> [keyword]` Fetch from a specific subreddit",
		"`/dashboard` Show the stats dashboard",
		"`/store` Check your balance and buy items",
		"`/gamble <game> [amount]` Flip, high-low, roll, slots, crash, blackjack, lottery, history, winrate",
		"`/entrance` Set or preview your entrance sound",
		"`/beep` Play a random beep sound",
		"`/beepfile <name>` Play a specific beep sound",
		"`/listbeeps` List available beep sounds",
	}, "\n")
	admin := strings.Join([]string{
		"`/memeadmin ping|uptime|cacheinfo`",
		"`/memeadmin addsubreddit|removesubreddit|validatesubreddits`",
		"`/memeadmin reset_voice_error|set_idle_timeout|reloadsounds`",
		"`/memeadmin toggle_gambling|setentrance`",
		"`/reloadbeeps`",
	}, "\n")
	subs := fmt.Sprintf("**SFW:** %s\n**NSFW:** %s", joinLimited(sfw, ", ", 480), joinLimited(nsfw, ", ", 480))

	return &discordgo.MessageEmbed{
		Title: "🤖 Bot Commands",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User Commands", Value: user},
			{Name: "Admin Commands", Value: admin},
			{Name: "Loaded Subreddits", Value: subs},
			{Name: "Available Beeps", Value: joinLimited(beeps, ", ", 1024)},
		},
	}
}

// HandleHelp serves /help.
func HandleHelp(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		embed := helpEmbed(
			b.Subreddits.Get(i.GuildID, models.KindSFW),
			b.Subreddits.Get(i.GuildID, models.KindNSFW),
			b.Beeps.Names(),
		)
		respondEmbed(s, i, embed, true)
	}
}
