package merger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nao-Mk2/awslogs/internal/model"
)

func ev(stream string, ts int64, msg string) model.LogEvent {
	return model.LogEvent{LogGroup: "g", LogStream: stream, Timestamp: ts, Message: msg, EventID: stream + "-" + msg}
}

func drain(t *testing.T, m *Merger, sources ...Source) []model.LogEvent {
	t.Helper()
	var out []model.LogEvent
	for e, err := range m.Merge(sources) {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func messages(events []model.LogEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

func TestMergeOrdersAcrossStreams(t *testing.T) {
	m := New(0, nil)
	got := drain(t, m,
		SliceSource("A", []model.LogEvent{ev("A", 100, "a"), ev("A", 300, "c")}),
		SliceSource("B", []model.LogEvent{ev("B", 200, "b")}),
	)
	assert.Equal(t, []string{"a", "b", "c"}, messages(got))
}

func TestMergeTieBreaksOnEventID(t *testing.T) {
	m := New(0, nil)
	x := model.LogEvent{LogStream: "B", Timestamp: 100, Message: "x", EventID: "002"}
	y := model.LogEvent{LogStream: "A", Timestamp: 100, Message: "y", EventID: "001"}
	got := drain(t, m,
		SliceSource("B", []model.LogEvent{x}),
		SliceSource("A", []model.LogEvent{y}),
	)
	assert.Equal(t, []string{"y", "x"}, messages(got))
}

func TestMergeSuppressesReDeliveredEvents(t *testing.T) {
	m := New(time.Minute, nil)
	first := drain(t, m, SliceSource("A", []model.LogEvent{ev("A", 100, "a"), ev("A", 200, "b")}))
	require.Len(t, first, 2)

	// The next pass overlaps the boundary and re-delivers "b".
	second := drain(t, m,
		SliceSource("A", []model.LogEvent{ev("A", 200, "b"), ev("A", 250, "c")}),
		SliceSource("B", []model.LogEvent{ev("B", 300, "d")}),
	)
	assert.Equal(t, []string{"c", "d"}, messages(second))
}

func TestMergeDropsDuplicatesWithinPass(t *testing.T) {
	m := New(0, nil)
	dup := ev("A", 100, "a")
	got := drain(t, m,
		SliceSource("A", []model.LogEvent{dup}),
		SliceSource("A-again", []model.LogEvent{dup}),
	)
	assert.Len(t, got, 1)
}

func TestMergeKeepsOutputMonotonic(t *testing.T) {
	m := New(0, nil)
	drain(t, m, SliceSource("A", []model.LogEvent{ev("A", 500, "late-boundary")}))

	got := drain(t, m, SliceSource("B", []model.LogEvent{ev("B", 400, "too-late"), ev("B", 600, "fresh")}))
	assert.Equal(t, []string{"fresh"}, messages(got))

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, int64(600), last.Timestamp)
}

func TestMergeFallbackKeyWithoutEventID(t *testing.T) {
	m := New(0, nil)
	a := model.LogEvent{LogStream: "A", Timestamp: 100, IngestionTime: 110, Message: "same"}
	b := model.LogEvent{LogStream: "B", Timestamp: 100, IngestionTime: 110, Message: "same"}
	got := drain(t, m, SliceSource("A", []model.LogEvent{a}), SliceSource("B", []model.LogEvent{b}))
	assert.Len(t, got, 2)

	again := drain(t, m, SliceSource("A", []model.LogEvent{a}))
	assert.Empty(t, again)
}

func TestMergeKeepsRepeatedMessagesWithDistinctTimestamps(t *testing.T) {
	m := New(0, nil)
	first := model.LogEvent{LogStream: "s", Timestamp: 100, IngestionTime: 500, Message: "heartbeat"}
	second := model.LogEvent{LogStream: "s", Timestamp: 200, IngestionTime: 500, Message: "heartbeat"}
	got := drain(t, m, SliceSource("s", []model.LogEvent{first, second}))
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].Timestamp)
	assert.Equal(t, int64(200), got[1].Timestamp)
}

func TestMergePrunesOutsideRetention(t *testing.T) {
	m := New(time.Second, nil)
	drain(t, m, SliceSource("A", []model.LogEvent{ev("A", 1_000, "a"), ev("A", 1_500, "b")}))
	assert.Equal(t, 2, m.Remembered())

	drain(t, m, SliceSource("A", []model.LogEvent{ev("A", 5_000, "c")}))
	assert.Equal(t, 1, m.Remembered())
}

func TestMergeStopsOnSourceError(t *testing.T) {
	boom := errors.New("boom")
	failing := Source{Name: "bad", Events: func(yield func(model.LogEvent, error) bool) {
		if !yield(ev("bad", 150, "x"), nil) {
			return
		}
		yield(model.LogEvent{}, boom)
	}}
	m := New(0, nil)
	var got []model.LogEvent
	var gotErr error
	for e, err := range m.Merge([]Source{SliceSource("A", []model.LogEvent{ev("A", 100, "a"), ev("A", 200, "b")}), failing}) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, e)
	}
	assert.ErrorIs(t, gotErr, boom)
	assert.Equal(t, []string{"a", "x"}, messages(got))
}

func TestMergeEarlyBreak(t *testing.T) {
	m := New(0, nil)
	count := 0
	for range m.Merge([]Source{SliceSource("A", []model.LogEvent{ev("A", 1, "a"), ev("A", 2, "b"), ev("A", 3, "c")})}) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
	last, _ := m.Last()
	assert.Equal(t, "b", last.Message)
}
