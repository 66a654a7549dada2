// Package merger merges per-stream event sequences into a single ordered
// sequence and suppresses events already emitted by an earlier pass.
package merger

import (
	"container/heap"
	"iter"
	"log/slog"
	"time"

	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/model"
)

// DefaultRetention is how far behind the newest emitted timestamp dedup keys
// are remembered.
const DefaultRetention = 5 * time.Minute

// Source is one ordered input to a merge.
type Source struct {
	Name   string
	Events iter.Seq2[model.LogEvent, error]
}

// SliceSource wraps already fetched, ordered events.
func SliceSource(name string, events []model.LogEvent) Source {
	return Source{Name: name, Events: func(yield func(model.LogEvent, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}}
}

// Merger keeps the state shared by successive merge passes. It is not safe
// for concurrent use; passes must run one after another.
type Merger struct {
	retention int64
	seen      map[string]int64
	last      model.LogEvent
	hasLast   bool
	newest    int64
	log       *slog.Logger
}

// New returns a Merger. A non-positive retention uses DefaultRetention.
func New(retention time.Duration, logger *slog.Logger) *Merger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Merger{
		retention: retention.Milliseconds(),
		seen:      make(map[string]int64),
		log:       logging.OrDiscard(logger),
	}
}

// Last returns the most recently emitted event, if any.
func (m *Merger) Last() (model.LogEvent, bool) {
	return m.last, m.hasLast
}

// Remembered returns the number of dedup keys currently retained.
func (m *Merger) Remembered() int {
	return len(m.seen)
}

type head struct {
	ev  model.LogEvent
	src int
}

type heads []head

func (h heads) Len() int { return len(h) }

func (h heads) Less(i, j int) bool {
	if h[i].ev.Less(h[j].ev) {
		return true
	}
	if h[j].ev.Less(h[i].ev) {
		return false
	}
	return h[i].src < h[j].src
}

func (h heads) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heads) Push(x any) { *h = append(*h, x.(head)) }

func (h *heads) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merge yields the events of all sources ordered by timestamp then dedup key.
// Each source must itself be ordered. At most one pending event per source is
// held. Events already emitted, or ordered before the last emitted event, are
// dropped so the output stays monotonic across passes. A source error ends
// the pass.
func (m *Merger) Merge(sources []Source) iter.Seq2[model.LogEvent, error] {
	return func(yield func(model.LogEvent, error) bool) {
		nexts := make([]func() (model.LogEvent, error, bool), len(sources))
		for i, s := range sources {
			next, stop := iter.Pull2(s.Events)
			defer stop()
			nexts[i] = next
		}

		h := make(heads, 0, len(sources))
		advance := func(i int) error {
			ev, err, ok := nexts[i]()
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
			heap.Push(&h, head{ev: ev, src: i})
			return nil
		}
		for i := range sources {
			if err := advance(i); err != nil {
				yield(model.LogEvent{}, err)
				return
			}
		}

		emitted, dropped := 0, 0
		defer func() {
			m.prune()
			m.log.Debug("merge pass finished",
				logging.Int("sources", len(sources)),
				logging.Int("emitted", emitted),
				logging.Int("dropped", dropped),
				logging.Int("remembered", len(m.seen)),
			)
		}()

		for h.Len() > 0 {
			top := heap.Pop(&h).(head)
			if m.accept(top.ev, sources[top.src].Name) {
				emitted++
				if !yield(top.ev, nil) {
					return
				}
			} else {
				dropped++
			}
			if err := advance(top.src); err != nil {
				yield(model.LogEvent{}, err)
				return
			}
		}
	}
}

func (m *Merger) accept(ev model.LogEvent, source string) bool {
	key := ev.DedupKey()
	if _, dup := m.seen[key]; dup {
		m.log.Debug("dropping duplicate event",
			logging.String("source", source),
			logging.String("key", key),
		)
		return false
	}
	if m.hasLast && ev.Less(m.last) {
		m.log.Debug("dropping late event",
			logging.String("source", source),
			logging.String("key", key),
			logging.Int64("timestamp", ev.Timestamp),
			logging.Int64("last", m.last.Timestamp),
		)
		return false
	}
	m.seen[key] = ev.Timestamp
	m.last, m.hasLast = ev, true
	m.newest = max(m.newest, ev.Timestamp)
	return true
}

func (m *Merger) prune() {
	cutoff := m.newest - m.retention
	for k, ts := range m.seen {
		if ts < cutoff {
			delete(m.seen, k)
		}
	}
}
