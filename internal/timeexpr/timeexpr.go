// Package timeexpr turns user supplied time expressions into epoch
// millisecond boundaries.
//
// Two forms are accepted: relative offsets such as "5m", "2 hours" or
// "1w ago", measured back from the supplied current time, and absolute dates
// in any layout dateparse understands ("2025-01-01 12:00:00", RFC3339,
// "1 Jan 2025", ...), interpreted as UTC when no zone is given.
package timeexpr

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Nao-Mk2/awslogs/internal/errs"
)

// Boundary is an optional epoch-millisecond instant.
type Boundary struct {
	Millis int64
	Valid  bool
}

// At returns a set boundary for t.
func At(t time.Time) Boundary {
	return Boundary{Millis: t.UnixMilli(), Valid: true}
}

// Time returns the boundary as a UTC time, or the zero time when unset.
func (b Boundary) Time() time.Time {
	if !b.Valid {
		return time.Time{}
	}
	return time.UnixMilli(b.Millis).UTC()
}

func (b Boundary) String() string {
	if !b.Valid {
		return "<none>"
	}
	return b.Time().Format(time.RFC3339Nano)
}

var relativeExpr = regexp.MustCompile(`^(\d+)\s*(s|sec|secs|seconds?|m|min|mins|minutes?|h|hours?|d|days?|w|weeks?)(?:\s+ago)?$`)

var unitDurations = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// Parse converts text into a boundary relative to now. Empty input yields an
// unset boundary. Unrecognized input fails with an errs.KindUnknownDate error
// carrying the original text.
func Parse(text string, now time.Time) (Boundary, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Boundary{}, nil
	}

	if m := relativeExpr.FindStringSubmatch(strings.ToLower(trimmed)); m != nil {
		unit := unitDurations[m[2][0]]
		amount, err := strconv.ParseInt(m[1], 10, 64)
		// An offset past what time.Duration holds would wrap around.
		if err != nil || amount > math.MaxInt64/int64(unit) {
			return Boundary{}, errs.UnknownDate(text)
		}
		return At(now.UTC().Add(-time.Duration(amount) * unit)), nil
	}

	t, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return Boundary{}, errs.UnknownDate(text)
	}
	return At(t), nil
}
