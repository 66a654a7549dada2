package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Nao-Mk2/awslogs/internal/client"
	"github.com/Nao-Mk2/awslogs/internal/output"
	"github.com/Nao-Mk2/awslogs/internal/timeexpr"
	"github.com/Nao-Mk2/awslogs/internal/util"
	"github.com/Nao-Mk2/awslogs/internal/watch"
)

// EnvPrefix prefixes environment overrides of any flag, e.g. AWSLOGS_COLOR.
const EnvPrefix = "AWSLOGS"

// DefaultStart is the start of a one-shot get without --start.
const DefaultStart = "5m"

// Flag and config keys.
const (
	keyRegion        = "aws-region"
	keyProfile       = "profile"
	keyAccessKeyID   = "aws-access-key-id"
	keySecretKey     = "aws-secret-access-key"
	keySessionToken  = "aws-session-token"
	keyEndpointURL   = "aws-endpoint-url"
	keyVerbose       = "verbose"
	keyEnvFile       = "env-file"
	keyStart         = "start"
	keyEnd           = "end"
	keyWatch         = "watch"
	keyWatchInterval = "watch-interval"
	keyFilterPattern = "filter-pattern"
	keyNoGroup       = "no-group"
	keyNoStream      = "no-stream"
	keyTimestamp     = "timestamp"
	keyIngestionTime = "ingestion-time"
	keyQuery         = "query"
	keyColor         = "color"
	keyWorkers       = "workers"
	keyGroupPrefix   = "log-group-prefix"
	keyDetails       = "details"
)

// Options holds CLI options after merging flags, environment and config file.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	EndpointURL     string
	Verbose         bool

	Start         string
	End           string
	Watch         bool
	WatchInterval time.Duration
	FilterPattern string
	NoGroup       bool
	NoStream      bool
	Timestamp     bool
	IngestionTime bool
	Query         string
	Color         string
	Workers       int

	GroupPrefix string
	Details     bool
}

// newViper returns a viper instance reading AWSLOGS_* overrides. The region
// also falls back to AWS_REGION.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(keyRegion, EnvPrefix+"_AWS_REGION", "AWS_REGION")
	return v
}

// CollectOptions reads every option from v.
func CollectOptions(v *viper.Viper) *Options {
	return &Options{
		Region:          v.GetString(keyRegion),
		Profile:         v.GetString(keyProfile),
		AccessKeyID:     v.GetString(keyAccessKeyID),
		SecretAccessKey: v.GetString(keySecretKey),
		SessionToken:    v.GetString(keySessionToken),
		EndpointURL:     v.GetString(keyEndpointURL),
		Verbose:         v.GetBool(keyVerbose),

		Start:         v.GetString(keyStart),
		End:           v.GetString(keyEnd),
		Watch:         v.GetBool(keyWatch),
		WatchInterval: v.GetDuration(keyWatchInterval),
		FilterPattern: v.GetString(keyFilterPattern),
		NoGroup:       v.GetBool(keyNoGroup),
		NoStream:      v.GetBool(keyNoStream),
		Timestamp:     v.GetBool(keyTimestamp),
		IngestionTime: v.GetBool(keyIngestionTime),
		Query:         v.GetString(keyQuery),
		Color:         v.GetString(keyColor),
		Workers:       v.GetInt(keyWorkers),

		GroupPrefix: v.GetString(keyGroupPrefix),
		Details:     v.GetBool(keyDetails),
	}
}

// Validate checks relationships between options.
func (o *Options) Validate() error {
	if _, err := output.ParseColorMode(o.Color); err != nil {
		return err
	}
	if o.Watch && o.End != "" {
		return errors.New("--end cannot be combined with --watch")
	}
	if o.WatchInterval < 0 {
		return fmt.Errorf("invalid --watch-interval %s", o.WatchInterval)
	}
	if o.Workers < 0 {
		return fmt.Errorf("invalid --workers %d", o.Workers)
	}
	if (o.AccessKeyID == "") != (o.SecretAccessKey == "") {
		return errors.New("--aws-access-key-id and --aws-secret-access-key must be given together")
	}
	return nil
}

// Auth returns the AWS client settings.
func (o *Options) Auth() client.AuthOptions {
	return client.AuthOptions{
		Region:          o.Region,
		Profile:         o.Profile,
		AccessKeyID:     o.AccessKeyID,
		SecretAccessKey: o.SecretAccessKey,
		SessionToken:    o.SessionToken,
		EndpointURL:     o.EndpointURL,
	}
}

// FormatOptions returns the event line layout.
func (o *Options) FormatOptions() (output.Options, error) {
	mode, err := output.ParseColorMode(o.Color)
	if err != nil {
		return output.Options{}, err
	}
	opts := output.Options{
		ShowGroup:         !o.NoGroup,
		ShowStream:        !o.NoStream,
		ShowTimestamp:     o.Timestamp,
		ShowIngestionTime: o.IngestionTime,
		Color:             mode,
	}
	if o.Query != "" {
		q, err := util.CompileQuery(o.Query)
		if err != nil {
			return output.Options{}, err
		}
		opts.Query = q
	}
	return opts, nil
}

// Interval returns the watch interval, defaulting when unset.
func (o *Options) Interval() time.Duration {
	if o.WatchInterval <= 0 {
		return watch.DefaultInterval
	}
	return o.WatchInterval
}

// ResolveTimeWindow parses the optional start and end expressions against now.
// Rules:
// - one-shot without start: start = now - 5m
// - watch without start: start is unset and the loop begins at now
// - end unset: the window is open-ended
// - both set: start must not be after end
func ResolveTimeWindow(startStr, endStr string, now time.Time, watching bool) (timeexpr.Boundary, timeexpr.Boundary, error) {
	if strings.TrimSpace(startStr) == "" && !watching {
		startStr = DefaultStart
	}
	start, err := timeexpr.Parse(startStr, now)
	if err != nil {
		return timeexpr.Boundary{}, timeexpr.Boundary{}, err
	}
	end, err := timeexpr.Parse(endStr, now)
	if err != nil {
		return timeexpr.Boundary{}, timeexpr.Boundary{}, err
	}
	if start.Valid && end.Valid && start.Millis >= end.Millis {
		return timeexpr.Boundary{}, timeexpr.Boundary{}, ErrStartAfterEnd
	}
	return start, end, nil
}

// ErrStartAfterEnd represents an invalid time window where start >= end.
var ErrStartAfterEnd = &timeRangeError{"start is not before end"}

type timeRangeError struct{ s string }

func (e *timeRangeError) Error() string { return e.s }
