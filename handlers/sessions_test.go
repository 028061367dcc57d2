package handlers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTimesOut(t *testing.T) {
	var timedOut atomic.Int32
	st := newSessionStore("test", 20*time.Millisecond, func(s *session[int]) {
		assert.Equal(t, 7, s.State)
		timedOut.Add(1)
	})

	s, ok := st.Start("u1", 7)
	require.True(t, ok)
	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "u1", got.OwnerID)

	assert.Eventually(t, func() bool { return timedOut.Load() == 1 }, time.Second, 5*time.Millisecond)
	_, ok = st.Get(s.ID)
	assert.False(t, ok)

	s.Lock()
	assert.True(t, s.Done())
	s.Unlock()
}

func TestFinishedSessionDoesNotTimeOut(t *testing.T) {
	var timedOut atomic.Int32
	st := newSessionStore("test", 20*time.Millisecond, func(*session[string]) { timedOut.Add(1) })

	s, ok := st.Start("u1", "state")
	require.True(t, ok)
	s.Lock()
	st.Finish(s)
	s.Unlock()

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), timedOut.Load())
}

func TestCustomIDRoundTrip(t *testing.T) {
	st := newSessionStore[int]("gamble-pick", time.Minute, nil)
	s, ok := st.Start("u1", 0)
	require.True(t, ok)

	prefix, id, action, ok := parseCustomID(st.CustomID(s, "heads"))
	require.True(t, ok)
	assert.Equal(t, "gamble-pick", prefix)
	assert.Equal(t, s.ID, id)
	assert.Equal(t, "heads", action)

	_, _, _, ok = parseCustomID("store:balance")
	assert.False(t, ok)
}

func TestFullStoreRefusesWithoutEvicting(t *testing.T) {
	var timedOut atomic.Int32
	st := newBoundedSessionStore("test", 2, time.Minute, func(*session[int]) { timedOut.Add(1) })

	a, ok := st.Start("u1", 1)
	require.True(t, ok)
	_, ok = st.Start("u2", 2)
	require.True(t, ok)

	_, ok = st.Start("u3", 3)
	assert.False(t, ok)
	assert.Equal(t, 2, st.Len())

	got, ok := st.Get(a.ID)
	require.True(t, ok)
	got.Lock()
	assert.False(t, got.Done())
	got.Unlock()

	a.Lock()
	st.Finish(a)
	a.Unlock()
	assert.Eventually(t, func() bool {
		_, ok := st.Start("u3", 3)
		return ok
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), timedOut.Load())
}
