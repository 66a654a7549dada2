package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/Nao-Mk2/awslogs/internal/inspector"
	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/timeexpr"
)

var epoch = time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)

type fakePoller struct {
	mu      sync.Mutex
	windows []model.Window
	results []inspector.Result
	err     error
	block   chan struct{}
	delay     time.Duration
	ctxErrs   []error
	deadlines []bool
}

func (f *fakePoller) Poll(ctx context.Context, w model.Window, emit func(model.LogEvent) error) (inspector.Result, error) {
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.delay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, w)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	if f.err != nil {
		return inspector.Result{}, f.err
	}
	i := len(f.windows) - 1
	if i < len(f.results) {
		r := f.results[i]
		for n := 0; n < r.Emitted; n++ {
			if err := emit(model.LogEvent{Timestamp: r.MaxTimestamp}); err != nil {
				return inspector.Result{}, err
			}
		}
		return r, nil
	}
	return inspector.Result{}, nil
}

func (f *fakePoller) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func (f *fakePoller) window(i int) model.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windows[i]
}

func run(ctx context.Context, l *Loop, start timeexpr.Boundary) chan error {
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, start, func(model.LogEvent) error { return nil })
	}()
	return done
}

func TestRunAdvancesBoundaryPastNewestEvent(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	now := clock.Now()
	start := timeexpr.At(now.Add(-5 * time.Minute))
	newest := now.Add(-time.Second).UnixMilli()

	p := &fakePoller{results: []inspector.Result{{Emitted: 2, MaxTimestamp: newest}}}
	l := New(p, WithClock(clock), WithInterval(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, l, start)

	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return p.polls() >= 3
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	first := p.window(0)
	assert.Equal(t, start.Millis, first.Start)
	assert.Equal(t, now.UnixMilli(), first.End)
	assert.Equal(t, newest+1, p.window(1).Start)
	// An empty poll leaves the boundary where it was.
	assert.Equal(t, newest+1, p.window(2).Start)
	assert.Greater(t, p.window(2).End, p.window(1).End)
	assert.Equal(t, Cancelled, l.State())
}

func TestRunStartsAtNowWithoutStart(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	now := clock.Now().UnixMilli()
	p := &fakePoller{}
	l := New(p, WithClock(clock), WithInterval(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, l, timeexpr.Boundary{})

	require.Eventually(t, func() bool {
		clock.Advance(500 * time.Millisecond)
		return p.polls() >= 1
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, now, p.window(0).Start)
}

func TestRunCancelWhileSleepingStopsWithoutPolling(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	p := &fakePoller{}
	l := New(p, WithClock(clock), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, l, timeexpr.At(clock.Now().Add(-time.Minute)))

	require.Eventually(t, func() bool {
		return p.polls() == 1 && l.State() == Sleeping
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	assert.Equal(t, 1, p.polls())
	assert.Equal(t, Cancelled, l.State())
}

func TestRunLetsInFlightPollFinish(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	p := &fakePoller{block: make(chan struct{})}
	l := New(p, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, l, timeexpr.At(clock.Now().Add(-time.Minute)))

	require.Eventually(t, func() bool { return l.State() == Polling }, time.Second, time.Millisecond)
	cancel()
	close(p.block)

	require.NoError(t, <-done)
	require.Equal(t, 1, p.polls())
	assert.NoError(t, p.ctxErrs[0], "poll context must survive loop cancellation")
}

func TestRunSlowPollCompletes(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	p := &fakePoller{delay: 150 * time.Millisecond}
	l := New(p, WithClock(clock), WithInterval(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := run(ctx, l, timeexpr.At(clock.Now().Add(-time.Minute)))

	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return p.polls() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, err := range p.ctxErrs {
		assert.NoError(t, err)
		assert.False(t, p.deadlines[i], "poll %d ran under a deadline", i)
	}
}

func TestRunStopsOnPollError(t *testing.T) {
	clock := clockz.NewFakeClockAt(epoch)
	boom := errors.New("boom")
	p := &fakePoller{err: boom}
	l := New(p, WithClock(clock))

	err := l.Run(context.Background(), timeexpr.At(clock.Now().Add(-time.Minute)), func(model.LogEvent) error { return nil })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.polls())
}

func TestRunReturnsImmediatelyWhenAlreadyCancelled(t *testing.T) {
	p := &fakePoller{}
	l := New(p, WithClock(clockz.NewFakeClockAt(epoch)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx, timeexpr.Boundary{}, func(model.LogEvent) error { return nil }))
	assert.Zero(t, p.polls())
}
