// Package watch follows a log group by polling a moving time window until
// cancelled.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/Nao-Mk2/awslogs/internal/inspector"
	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/timeexpr"
)

// State is the phase the loop is in.
type State int32

const (
	Idle State = iota
	Polling
	Sleeping
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Sleeping:
		return "sleeping"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const DefaultInterval = time.Second

// Poller runs one polling step over a window.
type Poller interface {
	Poll(ctx context.Context, w model.Window, emit func(model.LogEvent) error) (inspector.Result, error)
}

// Loop repeatedly polls, advancing its start boundary past the newest
// emitted event.
type Loop struct {
	poller   Poller
	clock    clockz.Clock
	interval time.Duration
	state    atomic.Int32
	log      *slog.Logger
}

// Option customizes a Loop.
type Option func(*Loop)

func WithClock(c clockz.Clock) Option { return func(l *Loop) { l.clock = c } }

// WithInterval sets the sleep between polls.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithLogger(lg *slog.Logger) Option { return func(l *Loop) { l.log = logging.OrDiscard(lg) } }

// New returns an idle Loop.
func New(p Poller, opts ...Option) *Loop {
	l := &Loop{
		poller:   p,
		clock:    clockz.RealClock,
		interval: DefaultInterval,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports the current phase.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) set(s State) {
	if prev := State(l.state.Swap(int32(s))); prev != s {
		l.log.Debug("watch state", logging.String("from", prev.String()), logging.String("to", s.String()))
	}
}

// Run polls from start (now when unset) until ctx is cancelled, which ends
// the loop with a nil error. Cancellation is observed only between polls. A
// failed poll ends the loop with its error.
func (l *Loop) Run(ctx context.Context, start timeexpr.Boundary, emit func(model.LogEvent) error) error {
	defer l.set(Cancelled)

	boundary := start.Millis
	if !start.Valid {
		boundary = l.clock.Now().UnixMilli()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.set(Polling)
		end := l.clock.Now().UnixMilli()
		if end > boundary {
			res, err := l.poll(ctx, model.Window{Start: boundary, End: end}, emit)
			if err != nil {
				return err
			}
			if res.Emitted > 0 {
				boundary = max(boundary, res.MaxTimestamp+1)
			}
		}

		l.set(Sleeping)
		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.interval):
		}
	}
}

// poll detaches the fetch from loop cancellation. There is no deadline for
// the poll as a whole; the client bounds each request it makes.
func (l *Loop) poll(ctx context.Context, w model.Window, emit func(model.LogEvent) error) (inspector.Result, error) {
	return l.poller.Poll(context.WithoutCancel(ctx), w, emit)
}
