package cmd

import (
	"os"
	"testing"
	"time"

	"github.com/Nao-Mk2/awslogs/internal/errs"
	"github.com/Nao-Mk2/awslogs/internal/output"
)

// helper to temporarily set env var
func withEnv(key, val string, fn func()) {
	old, had := os.LookupEnv(key)
	_ = os.Setenv(key, val)
	defer func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	}()
	fn()
}

// helper to temporarily unset env var
func withoutEnv(key string, fn func()) {
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	defer func() {
		if had {
			_ = os.Setenv(key, old)
		}
	}()
	fn()
}

func TestResolveTimeWindow(t *testing.T) {
	fixedNow := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		startStr  string
		endStr    string
		watching  bool
		wantStart time.Time // zero means unset
		wantEnd   time.Time
		wantErr   bool
		wantCode  int
	}{
		{"both-empty", "", "", false, fixedNow.Add(-5 * time.Minute), time.Time{}, false, 0},
		{"both-empty-watch", "", "", true, time.Time{}, time.Time{}, false, 0},
		{"relative-start", "2h", "", false, fixedNow.Add(-2 * time.Hour), time.Time{}, false, 0},
		{"only-end", "", "2025-08-31T11:59:00Z", false, fixedNow.Add(-5 * time.Minute), time.Date(2025, 8, 31, 11, 59, 0, 0, time.UTC), false, 0},
		{"both", "2025-08-30T09:00:00Z", "2025-08-31T09:30:00Z", false, time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC), time.Date(2025, 8, 31, 9, 30, 0, 0, time.UTC), false, 0},
		{"start-after-end", "2025-08-31T12:01:00Z", "2025-08-31T12:00:00Z", false, time.Time{}, time.Time{}, true, 1},
		{"start-equals-end", "2025-08-31T11:00:00Z", "2025-08-31T11:00:00Z", false, time.Time{}, time.Time{}, true, 1},
		{"bad-start", "not-time", "", false, time.Time{}, time.Time{}, true, 3},
		{"bad-end", "1h", "yesterday-ish", false, time.Time{}, time.Time{}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd, err := ResolveTimeWindow(tt.startStr, tt.endStr, fixedNow, tt.watching)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none: start=%v end=%v", gotStart, gotEnd)
				}
				if code := errs.ExitCode(err); code != tt.wantCode {
					t.Fatalf("exit code = %d, want %d (%v)", code, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotStart.Valid != !tt.wantStart.IsZero() || (gotStart.Valid && !gotStart.Time().Equal(tt.wantStart)) {
				t.Fatalf("start = %v, want %v", gotStart, tt.wantStart)
			}
			if gotEnd.Valid != !tt.wantEnd.IsZero() || (gotEnd.Valid && !gotEnd.Time().Equal(tt.wantEnd)) {
				t.Fatalf("end = %v, want %v", gotEnd, tt.wantEnd)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr bool
	}{
		{"ok", &Options{Color: "auto"}, false},
		{"empty-color", &Options{}, false},
		{"bad-color", &Options{Color: "rainbow"}, true},
		{"watch-with-end", &Options{Watch: true, End: "1h"}, true},
		{"negative-interval", &Options{WatchInterval: -time.Second}, true},
		{"negative-workers", &Options{Workers: -1}, true},
		{"key-without-secret", &Options{AccessKeyID: "AKIA"}, true},
		{"key-and-secret", &Options{AccessKeyID: "AKIA", SecretAccessKey: "s"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCollectOptionsFromEnv(t *testing.T) {
	withoutEnv("AWSLOGS_AWS_REGION", func() {
		withEnv("AWS_REGION", "ap-northeast-1", func() {
			withEnv("AWSLOGS_COLOR", "never", func() {
				withEnv("AWSLOGS_WATCH_INTERVAL", "3s", func() {
					o := CollectOptions(newViper())
					if o.Region != "ap-northeast-1" {
						t.Fatalf("Region = %q, want AWS_REGION fallback", o.Region)
					}
					if o.Color != "never" {
						t.Fatalf("Color = %q, want never", o.Color)
					}
					if o.WatchInterval != 3*time.Second {
						t.Fatalf("WatchInterval = %v, want 3s", o.WatchInterval)
					}
				})
			})
		})
	})
}

func TestCollectOptionsPrefixedRegionWins(t *testing.T) {
	withEnv("AWS_REGION", "us-east-1", func() {
		withEnv("AWSLOGS_AWS_REGION", "eu-west-1", func() {
			if got := CollectOptions(newViper()).Region; got != "eu-west-1" {
				t.Fatalf("Region = %q, want eu-west-1", got)
			}
		})
	})
}

func TestFormatOptions(t *testing.T) {
	o := &Options{NoStream: true, Timestamp: true, Color: "always", Query: "level"}
	f, err := o.FormatOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.ShowGroup || f.ShowStream || !f.ShowTimestamp || f.ShowIngestionTime {
		t.Fatalf("unexpected columns: %+v", f)
	}
	if f.Color != output.ColorAlways || f.Query == nil {
		t.Fatalf("unexpected color/query: %+v", f)
	}

	if _, err := (&Options{Query: "a.["}).FormatOptions(); err == nil {
		t.Fatalf("expected error for invalid query")
	}
}

func TestInterval(t *testing.T) {
	if got := (&Options{}).Interval(); got != time.Second {
		t.Fatalf("default interval = %v, want 1s", got)
	}
	if got := (&Options{WatchInterval: 5 * time.Second}).Interval(); got != 5*time.Second {
		t.Fatalf("interval = %v, want 5s", got)
	}
}
