package voice

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"memer/models"
)

// User-facing messages.
const (
	MsgGaveUp        = "🚫 Sorry! The bot's voice system is down in this server due to repeated Discord errors. Please try again later or ask an admin to use /reset_voice_error."
	MsgErrorCooldown = "⚠️ Bot is temporarily on voice error cooldown (Discord bug, 4006). I'll play your sound when ready!"
	MsgRetryLater    = "😬 Too many Discord voice errors (4006). I'll retry your sound in 1 min."
)

var cooldownMessages = []string{
	"Hold up! I'm on a cooldown because Discord is lame. 😅",
	"Discord says: 'Whoa there, take a breather!' 💤",
	"Whoa, slow down! Cooldown time. Blame Discord, not me. 🙃",
	"I’d love to, but Discord police says NOPE (cooldown)! 🚓",
	"Oops, spamming not allowed. I'm cooling off... thanks Discord! 🧊",
}

const playbackGap = 300 * time.Millisecond

// Player plays one clip at a time per guild.
type Player interface {
	// Play joins or moves to the entry's channel, stops current playback and
	// blocks until the clip finishes. It stays connected afterwards.
	Play(ctx context.Context, entry models.AudioQueueEntry) error
	Connected(guildID, channelID string) bool
	Disconnect(guildID string) error
}

// Queue is the per-channel FIFO of play requests, gated by cooldowns and the
// guild circuit breaker.
type Queue struct {
	errs   *ErrorManager
	player Player

	channelCooldown time.Duration
	userCooldown    time.Duration

	mu          sync.Mutex
	lastChannel map[string]time.Time
	lastUser    map[string]time.Time
	queues      map[string][]models.AudioQueueEntry
	locks       map[string]*sync.Mutex

	// OnPlay runs after every successful playback.
	OnPlay func(guildID string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQueue builds a queue. Zero cooldowns default to 10s.
func NewQueue(player Player, errs *ErrorManager, channelCooldown, userCooldown time.Duration) *Queue {
	if channelCooldown <= 0 {
		channelCooldown = 10 * time.Second
	}
	if userCooldown <= 0 {
		userCooldown = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		errs:            errs,
		player:          player,
		channelCooldown: channelCooldown,
		userCooldown:    userCooldown,
		lastChannel:     make(map[string]time.Time),
		lastUser:        make(map[string]time.Time),
		queues:          make(map[string][]models.AudioQueueEntry),
		locks:           make(map[string]*sync.Mutex),
		ctx:             ctx,
		cancel:          cancel,
		now:             time.Now,
		sleep:           sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Errors exposes the breaker for admin commands.
func (q *Queue) Errors() *ErrorManager {
	return q.errs
}

func waitSuffix(msg string, remaining time.Duration) string {
	secs := int(math.Ceil(remaining.Seconds()))
	if secs <= 0 {
		return msg
	}
	return fmt.Sprintf("%s Wait %ds.", msg, secs)
}

// QueueAudio accepts a play request. It returns false when the request was
// rejected or parked for a later retry.
func (q *Queue) QueueAudio(entry models.AudioQueueEntry) bool {
	gid := entry.GuildID

	if q.errs.GaveUp(gid) {
		entry.Tell(MsgGaveUp)
		return false
	}
	if q.errs.OnCooldown(gid) {
		entry.Tell(waitSuffix(MsgErrorCooldown, q.errs.CooldownRemaining(gid)))
		q.errs.EnqueueRetry(gid, entry)
		return false
	}

	q.mu.Lock()
	now := q.now()
	chLeft := q.channelCooldown - now.Sub(q.lastChannel[entry.ChannelID])
	usLeft := q.userCooldown - now.Sub(q.lastUser[entry.UserID])
	if chLeft > 0 || usLeft > 0 {
		q.mu.Unlock()
		if q.player.Connected(gid, entry.ChannelID) {
			q.push(entry, false)
			q.startDrain(entry.ChannelID)
			return true
		}
		entry.Tell(waitSuffix(cooldownMessages[rand.IntN(len(cooldownMessages))], max(chLeft, usLeft)))
		return false
	}
	q.lastChannel[entry.ChannelID] = now
	q.lastUser[entry.UserID] = now
	q.mu.Unlock()

	q.push(entry, false)
	q.startDrain(entry.ChannelID)
	return true
}

func (q *Queue) push(entry models.AudioQueueEntry, front bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cid := entry.ChannelID
	if front {
		q.queues[cid] = append([]models.AudioQueueEntry{entry}, q.queues[cid]...)
	} else {
		q.queues[cid] = append(q.queues[cid], entry)
	}
}

func (q *Queue) pop(cid string) (models.AudioQueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.queues[cid]
	if len(entries) == 0 {
		return models.AudioQueueEntry{}, false
	}
	q.queues[cid] = entries[1:]
	return entries[0], true
}

// Pending returns the number of queued entries for a channel.
func (q *Queue) Pending(cid string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[cid])
}

func (q *Queue) channelLock(cid string) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.locks[cid]
	if !ok {
		l = &sync.Mutex{}
		q.locks[cid] = l
	}
	return l
}

func (q *Queue) startDrain(cid string) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.drain(cid)
	}()
}

func (q *Queue) drain(cid string) {
	lock := q.channelLock(cid)
	lock.Lock()
	defer lock.Unlock()

	for q.ctx.Err() == nil {
		entry, ok := q.pop(cid)
		if !ok {
			return
		}
		gid := entry.GuildID

		if q.errs.GaveUp(gid) {
			entry.Tell(MsgGaveUp)
			continue
		}

		err := q.player.Play(q.ctx, entry)
		switch {
		case err == nil:
			q.errs.Succeeded(gid)
			if q.OnPlay != nil {
				q.OnPlay(gid)
			}
			if q.sleep(q.ctx, playbackGap) != nil {
				return
			}

		case IsHandshakeError(err):
			if q.errs.AddFailure(gid) {
				log.Printf("[Voice] 4006 threshold reached in guild %s, cooling down", gid)
				entry.Tell(waitSuffix(MsgRetryLater, q.errs.CooldownRemaining(gid)))
				q.errs.PushRetryFront(gid, entry)
				if q.sleep(q.ctx, q.errs.CooldownRemaining(gid)) != nil {
					return
				}
				if q.errs.GaveUp(gid) {
					log.Printf("[Voice] Giving up on voice in guild %s", gid)
					q.errs.ClearRetry(gid)
					entry.Tell(MsgGaveUp)
					continue
				}
				q.requeueRetries(gid, cid)
				continue
			}
			log.Printf("[Voice] 4006 in guild %s, retrying shortly", gid)
			if q.sleep(q.ctx, time.Second) != nil {
				return
			}
			q.push(entry, true)

		default:
			log.Printf("[Voice] Failed to play %s in %s: %v", entry.FilePath, cid, err)
			entry.Tell(fmt.Sprintf("⚠️ Failed to play audio: %v", err))
		}
	}
}

// requeueRetries moves the guild retry queue back into channel queues. The
// current channel is drained by the caller; other channels get their own
// drain.
func (q *Queue) requeueRetries(gid, current string) {
	others := map[string]bool{}
	for _, e := range q.errs.DrainRetry(gid) {
		q.push(e, false)
		if e.ChannelID != current {
			others[e.ChannelID] = true
		}
	}
	for cid := range others {
		q.startDrain(cid)
	}
}

// ClearGuild drops every queued and parked entry of a guild.
func (q *Queue) ClearGuild(gid string) int {
	q.mu.Lock()
	dropped := 0
	for cid, entries := range q.queues {
		kept := entries[:0]
		for _, e := range entries {
			if e.GuildID == gid {
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		q.queues[cid] = kept
	}
	q.mu.Unlock()
	q.errs.ClearRetry(gid)
	return dropped
}

// Close stops every drain loop and waits for them.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}

// FlushRetries re-queues parked requests of guilds whose cooldown expired.
func (q *Queue) FlushRetries() {
	for _, gid := range q.errs.RetryGuilds() {
		if q.errs.GaveUp(gid) {
			q.errs.ClearRetry(gid)
			continue
		}
		if q.errs.OnCooldown(gid) {
			continue
		}
		q.requeueRetries(gid, "")
	}
}
