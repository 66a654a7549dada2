package inspector

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Nao-Mk2/awslogs/internal/errs"
	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/merger"
	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/resolver"
)

// DefaultWorkers bounds concurrent FilterLogEvents calls in one poll.
const DefaultWorkers = 4

// EventSource is the subset of the CloudWatch client we use.
type EventSource interface {
	FilterEvents(ctx context.Context, q model.FilterQuery) iter.Seq2[model.LogEvent, error]
}

// StreamResolver expands a stream pattern for one window.
type StreamResolver interface {
	Resolve(ctx context.Context, group string, p resolver.Pattern, w model.Window) ([]string, error)
}

// Config selects what a poll fetches.
type Config struct {
	Group         string
	Pattern       resolver.Pattern
	FilterPattern string
	// TolerateEmpty turns "no streams matched" into an empty poll. Watch mode
	// sets it since streams may not have written anything yet.
	TolerateEmpty bool
}

// Result summarizes one poll.
type Result struct {
	Streams      int
	Emitted      int
	MaxTimestamp int64
}

// Inspector runs polling steps against a single log group.
type Inspector struct {
	client   EventSource
	resolver StreamResolver
	merger   *merger.Merger
	cfg      Config
	workers  int
	log      *slog.Logger
}

// New creates an Inspector. The merger carries dedup state across polls and
// must not be shared with another Inspector.
func New(client EventSource, res StreamResolver, m *merger.Merger, cfg Config, logger *slog.Logger) *Inspector {
	return &Inspector{
		client:   client,
		resolver: res,
		merger:   m,
		cfg:      cfg,
		workers:  DefaultWorkers,
		log:      logging.OrDiscard(logger),
	}
}

// SetWorkers caps the number of concurrent fetches (minimum 1).
func (in *Inspector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	in.workers = n
}

// Poll resolves streams for w, fetches their events concurrently, and emits
// the merged result in order. Nothing is emitted until every fetch finished.
func (in *Inspector) Poll(ctx context.Context, w model.Window, emit func(model.LogEvent) error) (Result, error) {
	if in.cfg.Group == "" {
		return Result{}, errors.New("no log group configured")
	}
	if w.Empty() {
		return Result{}, nil
	}
	streams, err := in.resolver.Resolve(ctx, in.cfg.Group, in.cfg.Pattern, w)
	if err != nil {
		if in.cfg.TolerateEmpty && errs.Is(err, errs.KindNoStreams) {
			in.log.Debug("no active streams", logging.String("group", in.cfg.Group))
			return Result{}, nil
		}
		return Result{}, err
	}

	if len(streams) == 0 {
		return Result{}, nil
	}

	shards := shard(streams, in.workers)
	results := make([][]model.LogEvent, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(shards))
	for i, names := range shards {
		g.Go(func() error {
			events, err := in.fetch(gctx, names, w)
			if err != nil {
				return err
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sources := make([]merger.Source, len(results))
	for i, events := range results {
		sources[i] = merger.SliceSource(shards[i][0], events)
	}

	res := Result{Streams: len(streams)}
	for ev, err := range in.merger.Merge(sources) {
		if err != nil {
			return res, err
		}
		if err := emit(ev); err != nil {
			return res, err
		}
		res.Emitted++
		res.MaxTimestamp = max(res.MaxTimestamp, ev.Timestamp)
	}
	last, _ := in.merger.Last()
	in.log.Debug("poll finished",
		logging.String("group", in.cfg.Group),
		logging.Int("streams", res.Streams),
		logging.Int("shards", len(shards)),
		logging.Int("emitted", res.Emitted),
		logging.Int64("last", last.Timestamp),
		logging.Int("remembered", in.merger.Remembered()),
	)
	return res, nil
}

// fetch collects one shard's events ordered by timestamp. A filtered call
// across several streams is not strictly ordered by the service.
func (in *Inspector) fetch(ctx context.Context, streams []string, w model.Window) ([]model.LogEvent, error) {
	var events []model.LogEvent
	q := model.FilterQuery{Group: in.cfg.Group, Streams: streams, Window: w, FilterPattern: in.cfg.FilterPattern}
	for ev, err := range in.client.FilterEvents(ctx, q) {
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	slices.SortFunc(events, func(a, b model.LogEvent) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return events, nil
}

// shard splits streams into at most n contiguous, non-empty groups.
func shard(streams []string, n int) [][]string {
	n = min(n, len(streams))
	if n <= 0 {
		return nil
	}
	out := make([][]string, 0, n)
	size, rest := len(streams)/n, len(streams)%n
	for i := 0; i < n; i++ {
		k := size
		if i < rest {
			k++
		}
		out = append(out, streams[:k])
		streams = streams[k:]
	}
	return out
}
