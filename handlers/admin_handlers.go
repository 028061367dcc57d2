package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"memer/bot"
	"memer/models"
	"memer/reddit"
	"memer/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	subredditWarnAt = 40
	minIdleTimeout  = 10 * time.Second
	adminOpTimeout  = 10 * time.Second
)

func contextFor(b *bot.Bot) (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.Context(), adminOpTimeout)
}

func kindLabel(kind string) string {
	return strings.ToUpper(kind)
}

// HandleMemeAdmin dispatches /memeadmin subcommands.
func HandleMemeAdmin(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	subcommands := map[string]func(*bot.Bot, *discordgo.Session, *discordgo.InteractionCreate, map[string]*discordgo.ApplicationCommandInteractionDataOption){
		"ping":               adminPing,
		"uptime":             adminUptime,
		"addsubreddit":       adminAddSubreddit,
		"removesubreddit":    adminRemoveSubreddit,
		"validatesubreddits": adminValidateSubreddits,
		"reset_voice_error":  adminResetVoiceError,
		"set_idle_timeout":   adminSetIdleTimeout,
		"toggle_gambling":    adminToggleGambling,
		"setentrance":        adminSetEntrance,
		"cacheinfo":          adminCacheInfo,
		"reloadsounds":       adminReloadSounds,
	}
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		options := i.ApplicationCommandData().Options
		if len(options) == 0 {
			respondEphemeral(s, i, errGeneric)
			return
		}
		sub := options[0]
		handler, ok := subcommands[sub.Name]
		if !ok {
			respondEphemeral(s, i, "❌ Unknown subcommand.")
			return
		}
		log.Printf("/memeadmin %s by %s in %s", sub.Name, utils.InteractionUser(i).ID, i.GuildID)
		handler(b, s, i, optionMap(sub.Options))
	}
}

func adminPing(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	respondEphemeral(s, i, fmt.Sprintf("🏓 Pong! Latency is %dms", s.HeartbeatLatency().Milliseconds()))
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("⏱️ Uptime: %dh %dm %ds", h, m, sec)
}

func adminUptime(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	respondEphemeral(s, i, formatUptime(time.Since(b.StartedAt)))
}

func adminAddSubreddit(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	kind := stringOpt(opts, "kind")
	name := strings.TrimPrefix(strings.TrimSpace(stringOpt(opts, "name")), "r/")
	if err := deferResponse(s, i, true); err != nil {
		log.Printf("Error deferring addsubreddit: %v", err)
	}

	ctx, cancel := contextFor(b)
	defer cancel()
	about, err := b.Reddit.About(ctx, name)
	if errors.Is(err, reddit.ErrNotFound) || (err == nil && about == nil) {
		editOriginal(s, i, fmt.Sprintf("❌ `%s` is not a valid or accessible subreddit.", name))
		return
	}
	if err != nil {
		log.Printf("Error validating r/%s: %v", name, err)
		editOriginal(s, i, errGeneric)
		return
	}
	if about.Name != "" {
		name = about.Name
	}

	if !b.Subreddits.Add(i.GuildID, kind, name) {
		editOriginal(s, i, fmt.Sprintf("⚠️ `%s` is already in the %s subreddits list for this server.", name, kindLabel(kind)))
		return
	}
	utils.Info("Admin", "AddSubreddit", fmt.Sprintf("%s added r/%s (%s) in %s", utils.InteractionUser(i).ID, name, kind, i.GuildID))

	msg := fmt.Sprintf("✅ Added `%s` to %s subreddits for this server.", name, kindLabel(kind))
	if count := len(b.Subreddits.Get(i.GuildID, kind)); count >= subredditWarnAt {
		msg += fmt.Sprintf("\n⚠️ **Warning:** %s subreddits now has %d entries. Too many may slow the bot or hit API limits!", kindLabel(kind), count)
	}
	editOriginal(s, i, msg)
}

func adminRemoveSubreddit(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	kind := stringOpt(opts, "kind")
	name := strings.TrimPrefix(strings.TrimSpace(stringOpt(opts, "name")), "r/")
	if !b.Subreddits.Remove(i.GuildID, kind, name) {
		respondEphemeral(s, i, fmt.Sprintf("⚠️ `%s` is not in the %s subreddits list for this server.", name, kindLabel(kind)))
		return
	}
	utils.Info("Admin", "RemoveSubreddit", fmt.Sprintf("%s removed r/%s (%s) in %s", utils.InteractionUser(i).ID, name, kind, i.GuildID))
	respondEphemeral(s, i, fmt.Sprintf("✅ Removed `%s` from the %s subreddits list for this server.", name, kindLabel(kind)))
}

// validationReport checks every subreddit of one kind against Reddit.
func validationReport(ctx context.Context, client reddit.Client, label string, subs []string) string {
	lines := make([]string, 0, len(subs)+1)
	valid := 0
	for _, sub := range subs {
		about, err := client.About(ctx, sub)
		if err != nil || about == nil {
			lines = append(lines, "❌ "+sub)
			continue
		}
		valid++
		lines = append(lines, "✅ "+sub)
	}
	header := fmt.Sprintf("**%s** (%d/%d valid):", label, valid, len(subs))
	return header + "\n" + strings.Join(lines, "\n")
}

func adminValidateSubreddits(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	if err := deferResponse(s, i, true); err != nil {
		log.Printf("Error deferring validatesubreddits: %v", err)
	}
	ctx, cancel := context.WithTimeout(b.Context(), 2*time.Minute)
	defer cancel()

	report := validationReport(ctx, b.Reddit, "SFW", b.Subreddits.Get(i.GuildID, models.KindSFW)) + "\n\n" +
		validationReport(ctx, b.Reddit, "NSFW", b.Subreddits.Get(i.GuildID, models.KindNSFW))
	editOriginal(s, i, truncate(report, 2000))
}

func adminResetVoiceError(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	errs := b.Voice.Errors()
	errs.Reset(i.GuildID)
	errs.ResetTotalFailures(i.GuildID)
	dropped := b.Voice.ClearGuild(i.GuildID)
	utils.Info("Admin", "ResetVoiceError", fmt.Sprintf("guild %s reset by %s, %d queued clips dropped", i.GuildID, utils.InteractionUser(i).ID, dropped))
	respondEphemeral(s, i, "✅ Voice error status/cooldown for this server has been reset. Try your entrance or beep again!")
}

func adminSetIdleTimeout(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	secs, _ := intOpt(opts, "seconds")
	d := time.Duration(secs) * time.Second
	if d != 0 && d < minIdleTimeout {
		respondEphemeral(s, i, "❌ Timeout must be at least 10 seconds, or 0 to disable.")
		return
	}
	b.Idle.SetTimeout(i.GuildID, d)
	if d == 0 {
		respondEphemeral(s, i, "✅ Idle timeout is now DISABLED")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("✅ Idle timeout is now ENABLED (%ds)", secs))
}

func adminToggleGambling(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	enabled := stringOpt(opts, "state") == "on"
	ctx, cancel := contextFor(b)
	defer cancel()
	if err := b.Economy.SetGambling(ctx, i.GuildID, enabled); err != nil {
		utils.Error("Admin", "ToggleGambling", err.Error())
		respondEphemeral(s, i, errGeneric)
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	respondEphemeral(s, i, fmt.Sprintf("✅ Gambling has been **%s** on this server.", state))
}

func adminSetEntrance(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opt, ok := opts["user"]
	if !ok {
		respondEphemeral(s, i, errGeneric)
		return
	}
	user := opt.UserValue(nil)
	file := stringOpt(opts, "file")
	if !b.Sounds.Has(file) {
		respondEphemeral(s, i, "That file doesn't exist!")
		return
	}
	volume := 1.0
	if v, ok := opts["volume"]; ok {
		volume = v.FloatValue()
	}
	if err := b.Entrances.Set(user.ID, models.EntranceConfig{File: file, Volume: volume}); err != nil {
		utils.Error("Admin", "SetEntrance", err.Error())
		respondEphemeral(s, i, errGeneric)
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Set `%s` as entrance for <@%s>.", file, user.ID))
}

func adminCacheInfo(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	ctx, cancel := contextFor(b)
	defer cancel()
	info, err := b.Cache.Info(ctx)
	if err != nil {
		log.Printf("Error reading cache info: %v", err)
	}
	respondEphemeral(s, i, fmt.Sprintf("```\n%s\n%s\n```", info.String(), b.AudioCache.Info()))
}

func adminReloadSounds(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, _ map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	beeps, err := b.Beeps.Reload()
	if err != nil {
		utils.Error("Admin", "ReloadSounds", err.Error())
	}
	sounds, err := b.Sounds.Reload()
	if err != nil {
		utils.Error("Admin", "ReloadSounds", err.Error())
	}
	b.AudioCache.Purge()
	utils.Info("Admin", "ReloadSounds", fmt.Sprintf("%d beeps, %d entrance sounds", beeps, sounds))
	respondEphemeral(s, i, "✅ Beep and entrance sounds reloaded.")
}
