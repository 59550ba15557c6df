package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakeSweeper) Sweep(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.n, f.err
}

func (f *fakeSweeper) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

type countingObserver struct{ total int64 }

func (c *countingObserver) Swept(n int64) { c.total += n }

func TestRunOnce_UsesTTLCutoff(t *testing.T) {
	store := &fakeSweeper{n: 3}
	obs := &countingObserver{}
	s, err := NewSessionSweeper(store, time.Hour, time.Minute, obs)
	require.NoError(t, err)
	defer s.Stop()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	assert.Equal(t, int64(3), s.RunOnce(context.Background()))
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, fixed.Add(-time.Hour), store.cutoffs[0])
	assert.Equal(t, int64(3), obs.total)
}

func TestRunOnce_ErrorIsSwallowed(t *testing.T) {
	store := &fakeSweeper{err: errors.New("db down")}
	obs := &countingObserver{}
	s, err := NewSessionSweeper(store, time.Hour, time.Minute, obs)
	require.NoError(t, err)
	defer s.Stop()

	assert.Equal(t, int64(0), s.RunOnce(context.Background()))
	assert.Equal(t, int64(0), obs.total)
}

func TestNewSessionSweeper_RejectsBadDurations(t *testing.T) {
	_, err := NewSessionSweeper(&fakeSweeper{}, 0, time.Minute, nil)
	assert.Error(t, err)
	_, err = NewSessionSweeper(&fakeSweeper{}, time.Hour, 0, nil)
	assert.Error(t, err)
}

func TestSessionSweeper_RunsOnSchedule(t *testing.T) {
	store := &fakeSweeper{}
	s, err := NewSessionSweeper(store, time.Hour, 20*time.Millisecond, nil)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return store.calls() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}
