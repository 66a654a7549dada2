// Package output renders log events, names and stream details for the
// terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/util"
)

// TimeLayout renders event and ingestion times.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ColorMode selects when output is highlighted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color value. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// Options selects the columns of an event line.
type Options struct {
	ShowGroup         bool
	ShowStream        bool
	ShowTimestamp     bool
	ShowIngestionTime bool
	Query             *util.Query
	Color             ColorMode
}

// Formatter writes one line per event.
type Formatter struct {
	w      io.Writer
	opts   Options
	group  *color.Color
	stream *color.Color
	ts     *color.Color
	ingest *color.Color
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer, opts Options) *Formatter {
	f := &Formatter{
		w:      w,
		opts:   opts,
		group:  color.New(color.FgGreen),
		stream: color.New(color.FgCyan),
		ts:     color.New(color.FgYellow),
		ingest: color.New(color.FgBlue),
	}
	on := Colorize(w, opts.Color)
	for _, c := range []*color.Color{f.group, f.stream, f.ts, f.ingest} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Colorize decides whether output to w is highlighted under mode.
func Colorize(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Format renders ev without a trailing newline.
func (f *Formatter) Format(ev model.LogEvent) (string, error) {
	var parts []string
	if f.opts.ShowGroup {
		parts = append(parts, f.group.Sprint(ev.LogGroup))
	}
	if f.opts.ShowStream {
		parts = append(parts, f.stream.Sprint(ev.LogStream))
	}
	if f.opts.ShowTimestamp {
		parts = append(parts, f.ts.Sprint(ev.Time().Format(TimeLayout)))
	}
	if f.opts.ShowIngestionTime {
		parts = append(parts, f.ingest.Sprint(model.LogEvent{Timestamp: ev.IngestionTime}.Time().Format(TimeLayout)))
	}

	msg := strings.TrimRight(ev.Message, "\r\n")
	if f.opts.Query != nil {
		out, ok, err := f.opts.Query.Apply(msg)
		if err != nil {
			return "", err
		}
		// Messages the query selects nothing from are shown unchanged.
		if ok {
			msg = out
		}
	}
	parts = append(parts, msg)
	return strings.Join(parts, " "), nil
}

// Write renders ev as one line.
func (f *Formatter) Write(ev model.LogEvent) error {
	line, err := f.Format(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.w, line)
	return err
}

// WriteNames writes one name per line.
func WriteNames(w io.Writer, names []string) error {
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}
