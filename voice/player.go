package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"memer/models"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
)

// DiscordPlayer streams local files into Discord voice channels.
type DiscordPlayer struct {
	s      *discordgo.Session
	cache  *AudioCache
	settle time.Duration

	mu      sync.Mutex
	playing map[string]context.CancelFunc
}

// NewDiscordPlayer builds a player. settle is the pause after joining a
// channel before audio is sent.
func NewDiscordPlayer(s *discordgo.Session, cache *AudioCache, settle time.Duration) *DiscordPlayer {
	return &DiscordPlayer{
		s:       s,
		cache:   cache,
		settle:  settle,
		playing: make(map[string]context.CancelFunc),
	}
}

func (p *DiscordPlayer) connection(gid string) *discordgo.VoiceConnection {
	p.s.RLock()
	defer p.s.RUnlock()
	return p.s.VoiceConnections[gid]
}

// Connected reports whether the bot sits in channelID of guildID.
func (p *DiscordPlayer) Connected(guildID, channelID string) bool {
	vc := p.connection(guildID)
	return vc != nil && vc.ChannelID == channelID
}

// ConnectedGuilds lists guilds with a live voice connection.
func (p *DiscordPlayer) ConnectedGuilds() []string {
	p.s.RLock()
	defer p.s.RUnlock()
	out := make([]string, 0, len(p.s.VoiceConnections))
	for gid := range p.s.VoiceConnections {
		out = append(out, gid)
	}
	return out
}

// ChannelOf returns the voice channel the bot sits in for guildID.
func (p *DiscordPlayer) ChannelOf(guildID string) string {
	if vc := p.connection(guildID); vc != nil {
		return vc.ChannelID
	}
	return ""
}

// Disconnect leaves voice in guildID.
func (p *DiscordPlayer) Disconnect(guildID string) error {
	p.stop(guildID)
	vc := p.connection(guildID)
	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect voice in %s: %w", guildID, err)
	}
	return nil
}

func (p *DiscordPlayer) stop(gid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.playing[gid]; ok {
		cancel()
		delete(p.playing, gid)
	}
}

func (p *DiscordPlayer) join(ctx context.Context, gid, cid string) (*discordgo.VoiceConnection, error) {
	vc := p.connection(gid)
	switch {
	case vc == nil:
		var err error
		vc, err = p.s.ChannelVoiceJoin(gid, cid, false, true)
		if err != nil {
			return nil, joinError("join", cid, err)
		}
		log.Printf("[AUDIO] Joined voice channel %s, waiting %s to stabilize", cid, p.settle)
	case vc.ChannelID != cid:
		if err := vc.ChangeChannel(cid, false, true); err != nil {
			return nil, joinError("move to", cid, err)
		}
		log.Printf("[AUDIO] Moved to voice channel %s, waiting %s to stabilize", cid, p.settle)
	default:
		return vc, nil
	}
	if err := sleepCtx(ctx, p.settle); err != nil {
		return nil, err
	}
	return vc, nil
}

// Play streams entry.FilePath at entry.Volume and blocks until done.
func (p *DiscordPlayer) Play(ctx context.Context, entry models.AudioQueueEntry) error {
	vc, err := p.join(ctx, entry.GuildID, entry.ChannelID)
	if err != nil {
		return err
	}

	frames, err := p.load(entry.FilePath, entry.Volume)
	if err != nil {
		return err
	}

	p.stop(entry.GuildID)
	playCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.playing[entry.GuildID] = cancel
	p.mu.Unlock()
	defer p.stop(entry.GuildID)

	if err := vc.Speaking(true); err != nil {
		return fmt.Errorf("failed to set speaking: %w", err)
	}
	defer vc.Speaking(false)

	for _, f := range frames {
		select {
		case <-playCtx.Done():
			return nil
		case vc.OpusSend <- f:
		}
	}
	return nil
}

// load returns opus frames for path, encoding and caching on a miss.
func (p *DiscordPlayer) load(path string, volume float64) ([][]byte, error) {
	if volume <= 0 {
		volume = 1
	}
	if frames, ok := p.cache.Get(path, volume); ok {
		return frames, nil
	}

	opts := *dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Bitrate = 96
	opts.Application = dca.AudioApplicationLowDelay
	opts.Volume = int(256 * volume)

	session, err := dca.EncodeFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	defer session.Cleanup()

	var frames [][]byte
	for {
		frame, err := session.OpusFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read opus frame from %s: %w", path, err)
		}
		frames = append(frames, frame)
	}
	p.cache.Add(path, volume, frames)
	return frames, nil
}
