package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/logging"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) ExpireHolds(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakeCompleter struct {
	calls atomic.Int32
	after atomic.Int64
}

func (f *fakeCompleter) CompleteStartedShows(_ context.Context, after time.Duration, _ *time.Location) (int, error) {
	f.calls.Add(1)
	f.after.Store(int64(after))
	return 1, nil
}

func TestRunnerRunsBothJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	completer := &fakeCompleter{}
	r := NewRunner(Config{
		HoldSweepInterval: 20 * time.Millisecond,
		CompleteInterval:  20 * time.Millisecond,
		ShowCompleteAfter: 3 * time.Hour,
	}, sweeper, completer, logging.Discard().WithField("test", t.Name()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2 && completer.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(3*time.Hour), completer.after.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerKeepsGoingAfterErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("deadlock found")}
	r := NewRunner(Config{HoldSweepInterval: 10 * time.Millisecond}, sweeper, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, nil)
	assert.Equal(t, DefaultCompleteInterval, r.cfg.CompleteInterval)
	assert.Equal(t, time.UTC, r.cfg.Location)
}

func TestSweepLogsShowsTouched(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := NewRunner(Config{}, &fakeSweeper{}, nil, logrus.NewEntry(logger))

	r.sweepHolds(context.Background())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "lapsed holds released", entry.Message)
	assert.Equal(t, 2, entry.Data["shows"])
	assert.NotContains(t, entry.Data, "released")
}
