package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/logger"
	"github.com/dripmail/dripmail/internal/service"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (service.SweepReport, error) {
	f.calls++
	return service.SweepReport{Selected: 1, Sent: 1}, f.err
}

type fakeLocker struct {
	held       bool
	acquireErr error
	acquires   int
	releases   int
}

func (f *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	f.acquires++
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(context.Context, string) error {
	f.releases++
	f.held = false
	return nil
}

func newTestScheduler(sweeper *fakeSweeper, locker *fakeLocker) *Scheduler {
	cfg := config.SchedulerConfig{Interval: time.Hour, LockTTL: time.Minute}
	return New(sweeper, locker, cfg, logger.New("error", "text"))
}

func TestRunOnceSweepsAndReleasesLock(t *testing.T) {
	sweeper := &fakeSweeper{}
	locker := &fakeLocker{}

	s := newTestScheduler(sweeper, locker)
	s.RunOnce(context.Background())

	require.Equal(t, 1, sweeper.calls)
	require.Equal(t, 1, locker.acquires)
	require.Equal(t, 1, locker.releases)
	require.False(t, locker.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	sweeper := &fakeSweeper{}
	locker := &fakeLocker{held: true}

	s := newTestScheduler(sweeper, locker)
	s.RunOnce(context.Background())

	require.Zero(t, sweeper.calls)
	require.Zero(t, locker.releases)
}

func TestRunOnceSkipsOnLockError(t *testing.T) {
	sweeper := &fakeSweeper{}
	locker := &fakeLocker{acquireErr: errors.New("redis down")}

	s := newTestScheduler(sweeper, locker)
	s.RunOnce(context.Background())

	require.Zero(t, sweeper.calls)
}

func TestRunOnceReleasesLockAfterSweepError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("store unavailable")}
	locker := &fakeLocker{}

	s := newTestScheduler(sweeper, locker)
	s.RunOnce(context.Background())

	require.Equal(t, 1, sweeper.calls)
	require.Equal(t, 1, locker.releases)
	require.False(t, locker.held)
}
