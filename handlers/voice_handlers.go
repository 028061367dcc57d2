package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"memer/bot"
	"memer/models"
	"memer/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	entrancePrefix   = "entrance"
	entranceTimeout  = 60 * time.Second
	entrancePageSize = 25
)

// userVoiceChannel returns the voice channel the user sits in, or "".
func userVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	if guildID == "" {
		return ""
	}
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// playFor queues a clip for the invoking user and reports queue notices as
// ephemeral followups.
func playFor(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, channelID, path string, volume float64) bool {
	return b.Voice.QueueAudio(models.AudioQueueEntry{
		GuildID:   i.GuildID,
		ChannelID: channelID,
		UserID:    utils.InteractionUser(i).ID,
		FilePath:  path,
		Volume:    volume,
		Notify:    func(msg string) { followupEphemeral(s, i, msg) },
	})
}

func editOriginal(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Printf("Error editing response: %v", err)
	}
}

// HandleBeep plays a random beep.
func HandleBeep(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if err := deferResponse(s, i, true); err != nil {
			log.Printf("Error deferring /beep: %v", err)
		}
		channelID := userVoiceChannel(s, i.GuildID, utils.InteractionUser(i).ID)
		if channelID == "" {
			editOriginal(s, i, "❌ You must be in a voice channel.")
			return
		}
		name, ok := b.Beeps.Random()
		if !ok {
			editOriginal(s, i, "⚠️ No beep sounds available.")
			return
		}
		path, err := b.Beeps.Path(name)
		if err != nil {
			editOriginal(s, i, errGeneric)
			return
		}
		playFor(b, s, i, channelID, path, 1.0)
		editOriginal(s, i, fmt.Sprintf("🔊 Beep! Playing `%s`.", name))
	}
}

// HandleBeepFile plays a named beep.
func HandleBeepFile(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		name := stringOpt(optionMap(i.ApplicationCommandData().Options), "name")
		if err := deferResponse(s, i, true); err != nil {
			log.Printf("Error deferring /beepfile: %v", err)
		}
		channelID := userVoiceChannel(s, i.GuildID, utils.InteractionUser(i).ID)
		if channelID == "" {
			editOriginal(s, i, "❌ You must be in a voice channel.")
			return
		}
		if !b.Beeps.Has(name) {
			editOriginal(s, i, "❌ File not found.")
			return
		}
		path, err := b.Beeps.Path(name)
		if err != nil {
			editOriginal(s, i, "❌ File not found.")
			return
		}
		playFor(b, s, i, channelID, path, 1.0)
		editOriginal(s, i, fmt.Sprintf("🔊 Playing `%s` beep sound.", name))
	}
}

// HandleListBeeps lists the beep folder.
func HandleListBeeps(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		names := b.Beeps.Names()
		if len(names) == 0 {
			respondEphemeral(s, i, "⚠️ No beep sounds found.")
			return
		}
		lines := make([]string, len(names))
		for n, name := range names {
			lines[n] = "`" + name + "`"
		}
		respondEphemeral(s, i, truncate(strings.Join(lines, "\n"), 2000))
	}
}

// HandleReloadBeeps rescans the beep folder.
func HandleReloadBeeps(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		n, err := b.Beeps.Reload()
		if err != nil {
			utils.Error("Voice", "ReloadBeeps", err.Error())
			respondEphemeral(s, i, errGeneric)
			return
		}
		utils.Info("Voice", "ReloadBeeps", fmt.Sprintf("%d beep files", n))
		respondEphemeral(s, i, "✅ Beep sounds list reloaded.")
	}
}

// entrancePicker is the state behind one /entrance message.
type entrancePicker struct {
	Files       []string
	Page        int
	File        string
	Volume      float64
	GuildID     string
	Interaction *discordgo.Interaction
}

func (p *entrancePicker) maxPage() int {
	if len(p.Files) == 0 {
		return 0
	}
	return (len(p.Files) - 1) / entrancePageSize
}

// entranceUI owns the live /entrance pickers.
type entranceUI struct {
	b        *bot.Bot
	sessions *sessionStore[*entrancePicker]
}

func newEntranceUI(b *bot.Bot) *entranceUI {
	e := &entranceUI{b: b}
	e.sessions = newSessionStore(entrancePrefix, entranceTimeout, e.timedOut)
	return e
}

func (e *entranceUI) timedOut(sess *session[*entrancePicker]) {
	msg := "⏳ Sorry, this session timed out. Nothing was saved. Please run `/entrance` again."
	comps := []discordgo.MessageComponent{}
	if _, err := e.b.Session.InteractionResponseEdit(sess.State.Interaction, &discordgo.WebhookEdit{
		Content:    &msg,
		Components: &comps,
	}); err != nil {
		log.Printf("Error closing entrance picker: %v", err)
	}
}

func (e *entranceUI) components(sess *session[*entrancePicker]) []discordgo.MessageComponent {
	p := sess.State
	id := func(action string) string { return e.sessions.CustomID(sess, action) }

	start := p.Page * entrancePageSize
	end := min(start+entrancePageSize, len(p.Files))
	files := make([]discordgo.SelectMenuOption, 0, end-start)
	for _, f := range p.Files[start:end] {
		files = append(files, discordgo.SelectMenuOption{Label: truncate(f, 100), Value: f, Default: f == p.File})
	}
	volumes := make([]discordgo.SelectMenuOption, 0, 10)
	for n := 1; n <= 10; n++ {
		v := float64(n) / 10
		volumes = append(volumes, discordgo.SelectMenuOption{
			Label:   fmt.Sprintf("%d%%", n*10),
			Value:   strconv.FormatFloat(v, 'f', 1, 64),
			Default: int(p.Volume*10+0.5) == n,
		})
	}

	comps := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{MenuType: discordgo.StringSelectMenu, CustomID: id("file"), Placeholder: "Select file", Options: files},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{MenuType: discordgo.StringSelectMenu, CustomID: id("volume"), Placeholder: "Select volume", Options: volumes},
		}},
		row(
			button("🔊 Preview", id("preview"), discordgo.PrimaryButton, false),
			button("💾 Save", id("save"), discordgo.SuccessButton, false),
			button("❌ Remove", id("remove"), discordgo.DangerButton, false),
		),
	}
	if p.maxPage() > 0 {
		comps = append(comps, row(
			button("⬅️ Prev", id("prev"), discordgo.SecondaryButton, p.Page == 0),
			button("Next ➡️", id("next"), discordgo.SecondaryButton, p.Page == p.maxPage()),
		))
	}
	return comps
}

// HandleEntrance opens the entrance picker.
func HandleEntrance(e *entranceUI) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		uid := utils.InteractionUser(i).ID
		if userVoiceChannel(s, i.GuildID, uid) == "" {
			respondEphemeral(s, i, "❌ You must be in a voice channel.")
			return
		}
		files := e.b.Sounds.Names()
		if len(files) == 0 {
			respondEphemeral(s, i, "⚠️ No entrance sounds available.")
			return
		}
		if e.b.Voice.Errors().GaveUp(i.GuildID) {
			respondEphemeral(s, i, "🚫 Voice is unavailable in this server right now. Ask an admin to use `/memeadmin reset_voice_error`.")
			return
		}

		cur, ok, err := e.b.Entrances.Get(uid)
		if err != nil {
			log.Printf("Error reading entrance for %s: %v", uid, err)
		}
		p := &entrancePicker{Files: files, Volume: 1.0, GuildID: i.GuildID, Interaction: i.Interaction}
		if ok {
			p.File, p.Volume = cur.File, cur.Volume
		} else {
			p.File = files[0]
		}
		for n, f := range files {
			if f == p.File {
				p.Page = n / entrancePageSize
				break
			}
		}

		sess, started := e.sessions.Start(uid, p)
		if !started {
			respondEphemeral(s, i, errBusy)
			return
		}
		e.b.Idle.Touch(i.GuildID)
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    "🎛️ Manage your entrance:",
				Components: e.components(sess),
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.Printf("Error opening entrance picker: %v", err)
		}
	}
}

// HandleEntranceComponent serves the picker's selects and buttons.
func HandleEntranceComponent(e *entranceUI) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		data := i.MessageComponentData()
		_, id, action, ok := parseCustomID(data.CustomID)
		if !ok {
			respondEphemeral(s, i, errGeneric)
			return
		}
		sess, ok := e.sessions.Get(id)
		if !ok {
			respondEphemeral(s, i, "⏳ This entrance picker has expired. Run `/entrance` again.")
			return
		}
		uid := utils.InteractionUser(i).ID
		if uid != sess.OwnerID {
			respondEphemeral(s, i, "❌ This picker isn't yours.")
			return
		}

		sess.Lock()
		defer sess.Unlock()
		if sess.Done() {
			respondEphemeral(s, i, "⏳ This entrance picker has expired. Run `/entrance` again.")
			return
		}
		p := sess.State

		channelID := userVoiceChannel(s, p.GuildID, uid)
		if channelID == "" {
			e.sessions.Finish(sess)
			updateComponentMessage(s, i, &discordgo.InteractionResponseData{
				Content:    "❌ You are no longer in a voice channel. Please join a voice channel and run `/entrance` again to set your entrance.",
				Components: []discordgo.MessageComponent{},
			})
			return
		}

		var content string
		switch action {
		case "file":
			if len(data.Values) > 0 && e.b.Sounds.Has(data.Values[0]) {
				p.File = data.Values[0]
			}
			content = fmt.Sprintf("✅ Selected `%s` — Volume: %d%%", p.File, int(p.Volume*100+0.5))
		case "volume":
			if len(data.Values) > 0 {
				if v, err := strconv.ParseFloat(data.Values[0], 64); err == nil && v > 0 && v <= 1 {
					p.Volume = v
				}
			}
			content = fmt.Sprintf("✅ Volume set to %d%% — File: `%s`", int(p.Volume*100+0.5), p.File)
		case "prev", "next":
			if action == "prev" {
				p.Page = max(0, p.Page-1)
			} else {
				p.Page = min(p.maxPage(), p.Page+1)
			}
			content = fmt.Sprintf("🎛️ Manage your entrance (Page %d/%d):", p.Page+1, p.maxPage()+1)
		case "preview":
			path, err := e.b.Sounds.Path(p.File)
			if p.File == "" || err != nil || !e.b.Sounds.Has(p.File) {
				content = "❌ No entrance file selected."
				break
			}
			if !playFor(e.b, s, i, channelID, path, p.Volume) {
				content = "⚠️ Could not preview right now. Try again in a few seconds."
				break
			}
			content = fmt.Sprintf("🎧 Previewing `%s` at %d%%\n(You can keep changing file/volume and preview as much as you want before saving!)", p.File, int(p.Volume*100+0.5))
		case "save":
			if err := e.b.Entrances.Set(uid, models.EntranceConfig{File: p.File, Volume: p.Volume}); err != nil {
				utils.Error("Voice", "SaveEntrance", fmt.Sprintf("%s: %v", uid, err))
				respondEphemeral(s, i, errGeneric)
				return
			}
			e.sessions.Finish(sess)
			updateComponentMessage(s, i, &discordgo.InteractionResponseData{
				Content:    "✅ Entrance saved!",
				Components: []discordgo.MessageComponent{},
			})
			return
		case "remove":
			removed, err := e.b.Entrances.Remove(uid)
			if err != nil {
				utils.Error("Voice", "RemoveEntrance", fmt.Sprintf("%s: %v", uid, err))
				respondEphemeral(s, i, errGeneric)
				return
			}
			if removed {
				content = "🗑️ Entrance removed! Pick a new sound or Save."
			} else {
				content = "You have no entrance set. Pick a sound and Save one!"
			}
		default:
			respondEphemeral(s, i, errGeneric)
			return
		}

		updateComponentMessage(s, i, &discordgo.InteractionResponseData{
			Content:    content,
			Components: e.components(sess),
		})
	}
}

// OnVoiceStateUpdate plays entrances and leaves channels nobody is in.
func OnVoiceStateUpdate(b *bot.Bot) func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	return func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
			return
		}
		if s.State.User != nil && v.UserID == s.State.User.ID {
			return
		}

		joined := v.ChannelID != "" && (v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID != v.ChannelID)
		if joined {
			playEntrance(b, v)
		}

		if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" && v.BeforeUpdate.ChannelID != v.ChannelID {
			leaveIfEmpty(b, s, v.GuildID, v.BeforeUpdate.ChannelID)
		}
	}
}

func playEntrance(b *bot.Bot, v *discordgo.VoiceStateUpdate) {
	cfg, ok, err := b.Entrances.Get(v.UserID)
	if err != nil {
		log.Printf("Error reading entrance for %s: %v", v.UserID, err)
		return
	}
	if !ok || !b.Sounds.Has(cfg.File) {
		return
	}
	path, err := b.Sounds.Path(cfg.File)
	if err != nil {
		log.Printf("Bad entrance file %q for %s: %v", cfg.File, v.UserID, err)
		return
	}
	volume := cfg.Volume
	if volume <= 0 {
		volume = 1.0
	}
	log.Printf("Queueing entrance %s for %s in %s", cfg.File, v.UserID, v.ChannelID)
	b.Voice.QueueAudio(models.AudioQueueEntry{
		GuildID:   v.GuildID,
		ChannelID: v.ChannelID,
		UserID:    v.UserID,
		FilePath:  path,
		Volume:    volume,
	})
}

// leaveIfEmpty disconnects when channelID is the bot's channel and no real
// user is left in it.
func leaveIfEmpty(b *bot.Bot, s *discordgo.Session, guildID, channelID string) {
	if b.Player.ChannelOf(guildID) != channelID {
		return
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return
	}
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if s.State.User != nil && vs.UserID == s.State.User.ID {
			continue
		}
		if m, err := s.State.Member(guildID, vs.UserID); err == nil && m.User != nil && m.User.Bot {
			continue
		}
		return
	}
	log.Printf("Voice channel %s in %s is empty; disconnecting", channelID, guildID)
	if err := b.Player.Disconnect(guildID); err != nil {
		log.Printf("Error leaving empty channel: %v", err)
	}
	b.Idle.Forget(guildID)
}
