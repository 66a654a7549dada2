// Package cmd implements the awslogs commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zoobzio/clockz"

	"github.com/Nao-Mk2/awslogs/internal/client"
	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/model"
)

// ErrNoCommand is returned when awslogs runs without a sub-command.
var ErrNoCommand = errors.New("no command given")

// LogsClient is what the commands need from CloudWatch Logs.
type LogsClient interface {
	ListGroups(ctx context.Context, prefix string) iter.Seq2[model.GroupInfo, error]
	ListStreams(ctx context.Context, group string, order model.StreamOrder) iter.Seq2[model.StreamInfo, error]
	FilterEvents(ctx context.Context, q model.FilterQuery) iter.Seq2[model.LogEvent, error]
}

// ClientFactory builds a LogsClient for the resolved AWS settings.
type ClientFactory func(ctx context.Context, auth client.AuthOptions, logger *slog.Logger) (LogsClient, error)

func defaultClientFactory(ctx context.Context, auth client.AuthOptions, logger *slog.Logger) (LogsClient, error) {
	cw, err := client.NewCloudWatchClient(ctx, auth, client.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudWatch client: %w", err)
	}
	return cw, nil
}

type app struct {
	v         *viper.Viper
	cfgFile   string
	stdout    io.Writer
	stderr    io.Writer
	clock     clockz.Clock
	newClient ClientFactory
	log       *slog.Logger
}

// Option customizes the root command.
type Option func(*app)

// WithOutput redirects command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *app) { a.stdout, a.stderr = stdout, stderr }
}

// WithClientFactory replaces the CloudWatch client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(a *app) { a.newClient = f }
}

// WithClock sets the clock used for relative times and watch sleeps.
func WithClock(c clockz.Clock) Option {
	return func(a *app) { a.clock = c }
}

// NewRootCommand builds the awslogs command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		v:         newViper(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		clock:     clockz.RealClock,
		newClient: defaultClientFactory,
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "awslogs",
		Short: "List and tail CloudWatch Logs",
		Long: `awslogs lists log groups and streams and prints or follows the events of
a log group, merged across streams in timestamp order.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(a.stderr)
			_ = cmd.Help()
			return ErrNoCommand
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.awslogs/config.yaml)")
	pf.String(keyEnvFile, "", "dotenv file loaded before AWS settings are resolved")
	pf.String(keyRegion, "", "AWS region (or set AWS_REGION)")
	pf.String(keyProfile, "", "AWS shared config profile (or set AWS_PROFILE)")
	pf.String(keyAccessKeyID, "", "AWS access key id")
	pf.String(keySecretKey, "", "AWS secret access key")
	pf.String(keySessionToken, "", "AWS session token")
	pf.String(keyEndpointURL, "", "override the CloudWatch Logs endpoint URL")
	pf.BoolP(keyVerbose, "v", false, "write debug diagnostics to stderr")

	root.AddCommand(newGroupsCmd(a))
	root.AddCommand(newStreamsCmd(a))
	root.AddCommand(newGetCmd(a))
	return root
}

// setup binds the executing command's flags, loads the env and config files
// and builds the diagnostics logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if envFile := a.v.GetString(keyEnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if err := a.readConfig(); err != nil {
		return err
	}
	a.log = logging.New(a.stderr, a.v.GetBool(keyVerbose))
	return nil
}

func (a *app) readConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	a.v.AddConfigPath(filepath.Join(home, ".awslogs"))
	a.v.SetConfigName("config")
	a.v.SetConfigType("yaml")
	// The default config file is optional.
	var notFound viper.ConfigFileNotFoundError
	if err := a.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) options() (*Options, error) {
	o := CollectOptions(a.v)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
