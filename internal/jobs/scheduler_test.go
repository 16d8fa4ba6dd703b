package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	cutoff time.Time
	purged int64
	err    error
	calls  int
}

func (s *stubPurger) PurgeStaleTemporary(_ context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.purged, s.err
}

func TestPurgeUsesConfiguredMaxAge(t *testing.T) {
	purger := &stubPurger{purged: 3}
	s := NewScheduler(purger, 24*time.Hour, zerolog.Nop())

	before := time.Now().Add(-24 * time.Hour)
	s.purgeStaleConsultations()
	after := time.Now().Add(-24 * time.Hour)

	require.Equal(t, 1, purger.calls)
	assert.False(t, purger.cutoff.Before(before))
	assert.False(t, purger.cutoff.After(after))
}

func TestPurgeSwallowsErrors(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	s := NewScheduler(purger, time.Hour, zerolog.Nop())

	// A failed run logs and returns; the next tick tries again.
	s.purgeStaleConsultations()
	require.Equal(t, 1, purger.calls)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(&stubPurger{}, time.Hour, zerolog.Nop())
	require.NoError(t, s.Start())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with no jobs in flight")
	}
}
