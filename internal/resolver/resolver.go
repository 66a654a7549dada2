// Package resolver expands a stream pattern into the concrete stream names of
// a log group.
package resolver

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"regexp"

	"github.com/Nao-Mk2/awslogs/internal/errs"
	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/model"
)

// AllStreams is the pattern text selecting every stream of a group.
const AllStreams = "ALL"

// patternKind tags the variant held by a Pattern.
type patternKind int

const (
	kindAll patternKind = iota
	kindExact
	kindRegex
)

// Pattern is a parsed stream pattern. It is dispatched once, at parse time.
type Pattern struct {
	kind patternKind
	text string
	re   *regexp.Regexp
}

// ParsePattern classifies s. Empty input and "ALL" select every stream; a
// name without regular expression metacharacters is an exact name; anything
// else must compile as a regular expression matched against the full name.
func ParsePattern(s string) (Pattern, error) {
	switch {
	case s == "" || s == AllStreams:
		return Pattern{kind: kindAll, text: AllStreams}, nil
	case regexp.QuoteMeta(s) == s:
		return Pattern{kind: kindExact, text: s}, nil
	}
	re, err := regexp.Compile("^(?:" + s + ")$")
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid stream pattern %q: %w", s, err)
	}
	return Pattern{kind: kindRegex, text: s, re: re}, nil
}

func (p Pattern) String() string { return p.text }

// Match reports whether name is selected by p.
func (p Pattern) Match(name string) bool {
	switch p.kind {
	case kindAll:
		return true
	case kindExact:
		return name == p.text
	default:
		return p.re.MatchString(name)
	}
}

// StreamLister lists the streams of a group.
type StreamLister interface {
	ListStreams(ctx context.Context, group string, order model.StreamOrder) iter.Seq2[model.StreamInfo, error]
}

// Resolver turns patterns into stream sets no larger than Limit.
type Resolver struct {
	lister StreamLister
	limit  int
	log    *slog.Logger
}

// New returns a Resolver. A non-positive limit means the service maximum.
func New(lister StreamLister, limit int, logger *slog.Logger) *Resolver {
	if limit <= 0 {
		limit = 100
	}
	return &Resolver{lister: lister, limit: limit, log: logging.OrDiscard(logger)}
}

// Resolve returns the names of the streams of group selected by p whose
// events overlap w, most recently active first. An exact name is returned
// without listing the group. Resolve fails with a no-streams error when
// nothing is selected and a too-many-streams error when more than the limit
// is.
func (r *Resolver) Resolve(ctx context.Context, group string, p Pattern, w model.Window) ([]string, error) {
	if p.kind == kindExact {
		return []string{p.text}, nil
	}

	var names []string
	listed := 0
	for s, err := range r.lister.ListStreams(ctx, group, model.OrderByLastEvent) {
		if err != nil {
			return nil, err
		}
		listed++
		if !p.Match(s.Name) || !s.Overlaps(w) {
			continue
		}
		names = append(names, s.Name)
	}
	r.log.Debug("resolved streams",
		logging.String("group", group),
		logging.String("pattern", p.text),
		logging.Int("listed", listed),
		logging.Int("matched", len(names)),
	)

	switch {
	case len(names) == 0:
		return nil, errs.NoStreams(p.text)
	case len(names) > r.limit:
		return nil, errs.TooManyStreams(p.text, len(names), r.limit)
	}
	return names, nil
}
