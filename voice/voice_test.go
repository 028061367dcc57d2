package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"memer/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakePlayer struct {
	mu        sync.Mutex
	played    []string
	errs      []error
	connected map[string]string
}

func (p *fakePlayer) Play(_ context.Context, e models.AudioQueueEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, e.FilePath)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *fakePlayer) Connected(gid, cid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[gid] == cid
}

func (p *fakePlayer) Disconnect(gid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.connected, gid)
	return nil
}

func (p *fakePlayer) ConnectedGuilds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for gid := range p.connected {
		out = append(out, gid)
	}
	return out
}

func (p *fakePlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type messages struct {
	mu   sync.Mutex
	msgs []string
}

func (m *messages) add(s string) {
	m.mu.Lock()
	m.msgs = append(m.msgs, s)
	m.mu.Unlock()
}

func (m *messages) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msgs...)
}

var handshake = &websocket.CloseError{Code: 4006, Text: "session no longer valid"}

func newTestQueue(p *fakePlayer) (*Queue, *fakeClock) {
	c := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	errs := NewErrorManager(2, 5, time.Minute)
	errs.now = c.now
	q := NewQueue(p, errs, 10*time.Second, 10*time.Second)
	q.now = c.now
	q.sleep = func(ctx context.Context, d time.Duration) error {
		c.advance(d)
		return ctx.Err()
	}
	return q, c
}

func entry(gid, cid, uid, file string, m *messages) models.AudioQueueEntry {
	e := models.AudioQueueEntry{GuildID: gid, ChannelID: cid, UserID: uid, FilePath: file, Volume: 1}
	if m != nil {
		e.Notify = m.add
	}
	return e
}

func TestIsHandshakeError(t *testing.T) {
	assert.True(t, IsHandshakeError(handshake))
	assert.True(t, IsHandshakeError(fmt.Errorf("join: %w", handshake)))
	assert.False(t, IsHandshakeError(&websocket.CloseError{Code: 4014}))
	assert.True(t, IsHandshakeError(errors.New("websocket: close 4006: session no longer valid")))
	assert.False(t, IsHandshakeError(errors.New("boom")))
	assert.False(t, IsHandshakeError(nil))

	timeout := joinError("join", "c1", errors.New("timeout waiting for voice"))
	assert.True(t, IsHandshakeError(timeout))
	assert.ErrorIs(t, timeout, ErrHandshake)
	assert.Contains(t, timeout.Error(), "c1")
	assert.True(t, IsHandshakeError(joinError("move to", "c2", errors.New("timeout waiting for voice"))))
}

func TestBreakerCooldownAfterMaxFailures(t *testing.T) {
	c := &fakeClock{t: time.Unix(0, 0)}
	m := NewErrorManager(2, 5, time.Minute)
	m.now = c.now

	assert.False(t, m.AddFailure("g"))
	assert.Equal(t, StateNormal, m.State("g"))

	assert.True(t, m.AddFailure("g"))
	snap := m.Snapshot("g")
	assert.True(t, snap.CooldownUntil.After(c.now()))
	assert.Equal(t, 0, snap.Failures)
	assert.Equal(t, 2, snap.TotalFailures)
	assert.Equal(t, StateCooldown, m.State("g"))

	c.advance(time.Minute)
	assert.Equal(t, StateNormal, m.State("g"))
}

func TestBreakerGivesUpAndResets(t *testing.T) {
	m := NewErrorManager(2, 5, time.Minute)
	for i := 0; i < 5; i++ {
		m.AddFailure("g")
	}
	assert.True(t, m.GaveUp("g"))
	assert.Equal(t, StateGaveUp, m.State("g"))

	m.Reset("g")
	assert.True(t, m.GaveUp("g"), "Reset alone keeps the guild down")

	m.ResetTotalFailures("g")
	assert.False(t, m.GaveUp("g"))
	assert.Equal(t, StateNormal, m.State("g"))
}

func TestSucceededForgivesFailures(t *testing.T) {
	m := NewErrorManager(2, 5, time.Minute)
	m.AddFailure("g")
	m.Succeeded("g")
	assert.Equal(t, ErrorState{}, m.Snapshot("g"))
}

func TestRetryQueueOrder(t *testing.T) {
	m := NewErrorManager(0, 0, 0)
	m.EnqueueRetry("g", models.AudioQueueEntry{FilePath: "b"})
	m.PushRetryFront("g", models.AudioQueueEntry{FilePath: "a"})
	m.EnqueueRetry("g", models.AudioQueueEntry{FilePath: "c"})

	assert.Equal(t, []string{"g"}, m.RetryGuilds())
	got := m.DrainRetry("g")
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].FilePath)
	assert.Equal(t, "c", got[2].FilePath)
	assert.Empty(t, m.DrainRetry("g"))
}

func TestQueueAudioPlays(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, _ := newTestQueue(p)
	defer q.Close()

	assert.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", nil)))
	require.Eventually(t, func() bool { return p.plays() == 1 }, time.Second, 5*time.Millisecond)
}

func TestQueueAudioCooldownMessageWhenNotConnected(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u1", "a.mp3", nil)))
	assert.False(t, q.QueueAudio(entry("g", "c", "u2", "b.mp3", m)))

	msgs := m.all()
	require.Len(t, msgs, 1)
	assert.Regexp(t, `Wait \d+s\.$`, msgs[0])
}

func TestQueueAudioUserCooldownAcrossChannels(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c1", "u", "a.mp3", nil)))
	assert.False(t, q.QueueAudio(entry("g", "c2", "u", "b.mp3", m)))
	assert.Len(t, m.all(), 1)
}

func TestQueueAudioQueuesSilentlyWhenConnected(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{"g": "c"}}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u1", "a.mp3", nil)))
	assert.True(t, q.QueueAudio(entry("g", "c", "u2", "b.mp3", m)))
	require.Eventually(t, func() bool { return p.plays() == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, m.all())
}

func TestQueueAudioRejectsAfterCooldownWindowPasses(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, c := newTestQueue(p)
	defer q.Close()

	require.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", nil)))
	require.Eventually(t, func() bool { return p.plays() == 1 }, time.Second, 5*time.Millisecond)
	c.advance(10 * time.Second)
	assert.True(t, q.QueueAudio(entry("g", "c", "u", "b.mp3", nil)))
}

func TestGaveUpRejectsWithoutPlaying(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, _ := newTestQueue(p)
	defer q.Close()
	for i := 0; i < 5; i++ {
		q.Errors().AddFailure("g")
	}
	q.Errors().Reset("g")
	m := &messages{}

	assert.False(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	assert.Equal(t, []string{MsgGaveUp}, m.all())
	assert.Equal(t, 0, p.plays())
}

func TestErrorCooldownParksRequest(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, c := newTestQueue(p)
	defer q.Close()
	q.Errors().AddFailure("g")
	q.Errors().AddFailure("g")
	m := &messages{}

	assert.False(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	require.Len(t, m.all(), 1)
	assert.Contains(t, m.all()[0], "Wait 60s.")
	assert.Equal(t, 1, q.Errors().Snapshot("g").Queued)

	q.FlushRetries()
	assert.Equal(t, 0, p.plays(), "still cooling down")

	c.advance(time.Minute)
	q.FlushRetries()
	require.Eventually(t, func() bool { return p.plays() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHandshakeErrorsRetryThenCooldown(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}, errs: []error{handshake, handshake}}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	require.Eventually(t, func() bool { return p.plays() == 3 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return q.Errors().Snapshot("g").TotalFailures == 0 }, time.Second, 5*time.Millisecond)
	msgs := m.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], MsgRetryLater)
}

func TestHandshakeErrorsGiveUp(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = handshake
	}
	p := &fakePlayer{connected: map[string]string{}, errs: errs}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	require.Eventually(t, func() bool { return q.Errors().GaveUp("g") && q.Pending("c") == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		msgs := m.all()
		return len(msgs) > 0 && msgs[len(msgs)-1] == MsgGaveUp
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.Errors().Snapshot("g").Queued)
}

func TestJoinTimeoutsTripBreaker(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = joinError("join", "c", errors.New("timeout waiting for voice"))
	}
	p := &fakePlayer{connected: map[string]string{}, errs: errs}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	require.Eventually(t, func() bool { return q.Errors().GaveUp("g") && q.Pending("c") == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		msgs := m.all()
		return len(msgs) > 0 && msgs[len(msgs)-1] == MsgGaveUp
	}, time.Second, 5*time.Millisecond)

	msgs := m.all()
	assert.Contains(t, msgs[0], MsgRetryLater)
	for _, msg := range msgs {
		assert.NotContains(t, msg, "Failed to play audio")
	}
	assert.Positive(t, q.Errors().Snapshot("g").TotalFailures)
}

func TestDrainStopsWhenGapInterrupted(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}}
	q, _ := newTestQueue(p)
	defer q.Close()
	q.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	q.push(entry("g", "c", "u", "a.mp3", nil), false)
	q.push(entry("g", "c", "u", "b.mp3", nil), false)
	q.drain("c")

	assert.Equal(t, 1, p.plays())
	assert.Equal(t, 1, q.Pending("c"))
}

func TestOtherErrorsDropEntry(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{}, errs: []error{errors.New("ffmpeg missing")}}
	q, _ := newTestQueue(p)
	defer q.Close()
	m := &messages{}

	require.True(t, q.QueueAudio(entry("g", "c", "u", "a.mp3", m)))
	require.Eventually(t, func() bool { return len(m.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, m.all()[0], "ffmpeg missing")
	assert.Equal(t, 1, p.plays())
}

func TestIdleMonitorDisconnects(t *testing.T) {
	p := &fakePlayer{connected: map[string]string{"g1": "c", "g2": "c"}}
	c := &fakeClock{t: time.Unix(0, 0)}
	m := NewIdleMonitor(p, time.Minute)
	m.now = c.now
	m.SetTimeout("g2", 0)

	m.Touch("g1")
	m.Check()
	assert.Len(t, p.ConnectedGuilds(), 2)

	c.advance(time.Minute)
	m.Check()
	assert.Equal(t, []string{"g2"}, p.ConnectedGuilds())

	d, enabled := m.Timeout("g2")
	assert.False(t, enabled)
	assert.Zero(t, d)
}

func TestAudioCacheEvicts(t *testing.T) {
	c, err := NewAudioCache(2)
	require.NoError(t, err)
	c.Add("a", 1, [][]byte{{1}})
	c.Add("b", 1, [][]byte{{2}})
	c.Add("a", 0.5, [][]byte{{3}})

	_, ok := c.Get("a", 1)
	assert.False(t, ok)
	frames, ok := c.Get("a", 0.5)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{3}}, frames)
	assert.Equal(t, "🔊 Audio cache: 2/2 clips", c.Info())
}

func TestListSounds(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.mp3", "a.wav", "c.txt", "d.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	names, err := ListSounds(dir, BeepExts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.wav", "b.mp3"}, names)

	names, err = ListSounds(filepath.Join(dir, "missing"), AudioExts)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = SafeJoin(dir, "../secret.mp3")
	assert.Error(t, err)
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Airhorn.mp3"), nil, 0o644))
	lib, err := NewLibrary(dir, BeepExts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Airhorn.mp3"}, lib.Names())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "boing.ogg"), nil, 0o644))
	assert.False(t, lib.Has("boing.ogg"), "cached until reload")
	n, err := lib.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Airhorn.mp3"}, lib.Search("air", 25))

	path, err := lib.Path("boing.ogg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "boing.ogg"), path)
	_, err = lib.Path("nope.mp3")
	assert.Error(t, err)
}

func TestClearGuildDropsQueuedAndParked(t *testing.T) {
	q, _ := newTestQueue(&fakePlayer{connected: map[string]string{}})
	defer q.Close()

	q.push(entry("g1", "c1", "u", "a.mp3", nil), false)
	q.push(entry("g1", "c1", "u", "b.mp3", nil), false)
	q.push(entry("g2", "c2", "u", "c.mp3", nil), false)
	q.errs.EnqueueRetry("g1", entry("g1", "c1", "u", "d.mp3", nil))

	assert.Equal(t, 2, q.ClearGuild("g1"))
	assert.Zero(t, q.Pending("c1"))
	assert.Equal(t, 1, q.Pending("c2"))
	assert.Empty(t, q.errs.DrainRetry("g1"))
}
