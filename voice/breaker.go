package voice

import (
	"sync"
	"time"

	"memer/models"
)

// Breaker states.
const (
	StateNormal   = "NORMAL"
	StateCooldown = "COOLDOWN"
	StateGaveUp   = "GAVE_UP"
)

// ErrorState is a snapshot of one guild's breaker.
type ErrorState struct {
	Failures      int
	TotalFailures int
	CooldownUntil time.Time
	GaveUp        bool
	Queued        int
}

type guildState struct {
	failures      int
	total         int
	cooldownUntil time.Time
	gaveUp        bool
	retry         []models.AudioQueueEntry
}

// ErrorManager is the per-guild 4006 circuit breaker.
type ErrorManager struct {
	mu     sync.Mutex
	guilds map[string]*guildState

	MaxFailures      int
	MaxTotalFailures int
	Cooldown         time.Duration

	now func() time.Time
}

// NewErrorManager applies the defaults 2 / 5 / 60s for zero values.
func NewErrorManager(maxFailures, maxTotal int, cooldown time.Duration) *ErrorManager {
	if maxFailures <= 0 {
		maxFailures = 2
	}
	if maxTotal <= 0 {
		maxTotal = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &ErrorManager{
		guilds:           make(map[string]*guildState),
		MaxFailures:      maxFailures,
		MaxTotalFailures: maxTotal,
		Cooldown:         cooldown,
		now:              time.Now,
	}
}

func (m *ErrorManager) state(gid string) *guildState {
	st, ok := m.guilds[gid]
	if !ok {
		st = &guildState{}
		m.guilds[gid] = st
	}
	return st
}

// AddFailure records a 4006. It returns true when the failure started a
// cooldown.
func (m *ErrorManager) AddFailure(gid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(gid)
	st.failures++
	st.total++
	if st.total >= m.MaxTotalFailures {
		st.gaveUp = true
	}
	if st.failures >= m.MaxFailures {
		st.cooldownUntil = m.now().Add(m.Cooldown)
		st.failures = 0
		return true
	}
	return false
}

// OnCooldown reports whether the guild is inside a cooldown window.
func (m *ErrorManager) OnCooldown(gid string) bool {
	return m.CooldownRemaining(gid) > 0
}

// CooldownRemaining returns the time left on the cooldown, or 0.
func (m *ErrorManager) CooldownRemaining(gid string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.guilds[gid]
	if !ok {
		return 0
	}
	if d := st.cooldownUntil.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}

// GaveUp reports whether voice is down for the guild until an admin reset.
func (m *ErrorManager) GaveUp(gid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.guilds[gid]
	return ok && st.gaveUp
}

// State derives the breaker state.
func (m *ErrorManager) State(gid string) string {
	if m.GaveUp(gid) {
		return StateGaveUp
	}
	if m.OnCooldown(gid) {
		return StateCooldown
	}
	return StateNormal
}

// Snapshot returns a copy of the guild's counters.
func (m *ErrorManager) Snapshot(gid string) ErrorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.guilds[gid]
	if !ok {
		return ErrorState{}
	}
	return ErrorState{
		Failures:      st.failures,
		TotalFailures: st.total,
		CooldownUntil: st.cooldownUntil,
		GaveUp:        st.gaveUp,
		Queued:        len(st.retry),
	}
}

// Reset clears the per-cooldown counter and the cooldown itself.
func (m *ErrorManager) Reset(gid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(gid)
	st.failures = 0
	st.cooldownUntil = time.Time{}
}

// ResetTotalFailures clears the total counter and the give-up flag.
func (m *ErrorManager) ResetTotalFailures(gid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(gid)
	st.total = 0
	st.gaveUp = false
}

// Succeeded forgives every failure after a clean playback.
func (m *ErrorManager) Succeeded(gid string) {
	m.Reset(gid)
	m.ResetTotalFailures(gid)
}

// EnqueueRetry appends to the guild retry queue.
func (m *ErrorManager) EnqueueRetry(gid string, e models.AudioQueueEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(gid)
	st.retry = append(st.retry, e)
}

// PushRetryFront puts e at the head of the guild retry queue.
func (m *ErrorManager) PushRetryFront(gid string, e models.AudioQueueEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(gid)
	st.retry = append([]models.AudioQueueEntry{e}, st.retry...)
}

// DrainRetry empties the retry queue and returns its entries in order.
func (m *ErrorManager) DrainRetry(gid string) []models.AudioQueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(gid)
	out := st.retry
	st.retry = nil
	return out
}

// ClearRetry drops every queued retry.
func (m *ErrorManager) ClearRetry(gid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state(gid).retry = nil
}

// RetryGuilds lists guilds with parked retries.
func (m *ErrorManager) RetryGuilds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for gid, st := range m.guilds {
		if len(st.retry) > 0 {
			out = append(out, gid)
		}
	}
	return out
}
