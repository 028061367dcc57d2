package voice

import (
	"context"
	"log"
	"sync"
	"time"
)

// Connections is the subset of the player the idle monitor needs.
type Connections interface {
	ConnectedGuilds() []string
	Disconnect(guildID string) error
}

// IdleMonitor disconnects guilds whose voice connection saw no playback for
// their idle timeout.
type IdleMonitor struct {
	mu       sync.Mutex
	conns    Connections
	last     map[string]time.Time
	timeouts map[string]time.Duration
	def      time.Duration
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewIdleMonitor uses def as the timeout for guilds without an override.
func NewIdleMonitor(conns Connections, def time.Duration) *IdleMonitor {
	if def <= 0 {
		def = 10 * time.Minute
	}
	return &IdleMonitor{
		conns:    conns,
		last:     make(map[string]time.Time),
		timeouts: make(map[string]time.Duration),
		def:      def,
		interval: 5 * time.Second,
		now:      time.Now,
	}
}

// Touch marks activity in a guild.
func (m *IdleMonitor) Touch(guildID string) {
	m.mu.Lock()
	m.last[guildID] = m.now()
	m.mu.Unlock()
}

// Forget drops a guild's activity record.
func (m *IdleMonitor) Forget(guildID string) {
	m.mu.Lock()
	delete(m.last, guildID)
	m.mu.Unlock()
}

// SetTimeout overrides the guild timeout. Zero disables idle disconnects.
func (m *IdleMonitor) SetTimeout(guildID string, d time.Duration) {
	m.mu.Lock()
	m.timeouts[guildID] = d
	m.mu.Unlock()
}

// Timeout returns the effective timeout and whether it is enabled.
func (m *IdleMonitor) Timeout(guildID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.timeouts[guildID]
	if !ok {
		return m.def, true
	}
	return d, d > 0
}

// Check disconnects every idle guild once.
func (m *IdleMonitor) Check() {
	for _, gid := range m.conns.ConnectedGuilds() {
		timeout, enabled := m.Timeout(gid)
		if !enabled {
			continue
		}

		m.mu.Lock()
		last, ok := m.last[gid]
		if !ok {
			m.last[gid] = m.now()
			m.mu.Unlock()
			continue
		}
		idle := m.now().Sub(last)
		m.mu.Unlock()

		if idle < timeout {
			continue
		}
		log.Printf("[Voice] Guild %s idle for %s, disconnecting", gid, idle.Round(time.Second))
		if err := m.conns.Disconnect(gid); err != nil {
			log.Printf("[Voice] idle disconnect failed: %v", err)
			continue
		}
		m.Forget(gid)
	}
}

// Start runs Check every 5s until Stop.
func (m *IdleMonitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check()
			}
		}
	}()
}

// Stop ends the loop.
func (m *IdleMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}
