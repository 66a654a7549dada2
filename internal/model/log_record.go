package model

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// LogEvent is a single event fetched from a log stream. Timestamps are epoch
// milliseconds as reported by the service.
type LogEvent struct {
	LogGroup      string `json:"logGroup"`
	LogStream     string `json:"logStream"`
	Timestamp     int64  `json:"timestamp"`
	Message       string `json:"message"`
	IngestionTime int64  `json:"ingestionTime"`
	EventID       string `json:"eventId,omitempty"`
}

// Time returns the event timestamp as a UTC time.
func (e LogEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// DedupKey identifies an event across re-fetches. The service event id is
// used when present; otherwise the timestamp, stream, ingestion time and a
// hash of the message stand in for it.
func (e LogEvent) DedupKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return strconv.FormatInt(e.Timestamp, 10) + "|" + e.LogStream + "|" +
		strconv.FormatInt(e.IngestionTime, 10) + "|" +
		strconv.FormatUint(xxhash.Sum64String(e.Message), 16)
}

// Less orders events by timestamp, breaking ties on the dedup key.
func (e LogEvent) Less(o LogEvent) bool {
	if e.Timestamp != o.Timestamp {
		return e.Timestamp < o.Timestamp
	}
	return e.DedupKey() < o.DedupKey()
}

// StreamInfo describes a log stream as listed by the service. Zero timestamps
// mean the stream has not reported any events yet.
type StreamInfo struct {
	Name                string
	FirstEventTimestamp int64
	LastEventTimestamp  int64
	LastIngestionTime   int64
	CreationTime        int64
}

// HasEvents reports whether the service knows of any event in the stream.
func (s StreamInfo) HasEvents() bool {
	return s.FirstEventTimestamp != 0
}

// Overlaps reports whether the stream's event span intersects w. The last
// ingestion time also counts, since the last-event timestamp is refreshed
// lazily by the service.
func (s StreamInfo) Overlaps(w Window) bool {
	if !s.HasEvents() {
		return false
	}
	last := max(s.LastEventTimestamp, s.LastIngestionTime)
	if w.HasStart() && last < w.Start {
		return false
	}
	if w.HasEnd() && s.FirstEventTimestamp >= w.End {
		return false
	}
	return true
}

// GroupInfo describes a log group.
type GroupInfo struct {
	Name            string
	CreationTime    int64
	RetentionInDays int32
	StoredBytes     int64
}

// StreamOrder selects the listing order of streams.
type StreamOrder int

const (
	// OrderByName lists streams alphabetically.
	OrderByName StreamOrder = iota
	// OrderByLastEvent lists the most recently active streams first.
	OrderByLastEvent
)

// Window is a half-open [Start, End) range in epoch milliseconds. A zero
// bound is unbounded.
type Window struct {
	Start int64
	End   int64
}

func (w Window) HasStart() bool { return w.Start > 0 }

func (w Window) HasEnd() bool { return w.End > 0 }

// Empty reports whether no timestamp can fall inside w.
func (w Window) Empty() bool { return w.HasStart() && w.HasEnd() && w.Start >= w.End }

// FilterQuery is one filtered event query against a group.
type FilterQuery struct {
	Group         string
	Streams       []string
	Window        Window
	FilterPattern string
}
