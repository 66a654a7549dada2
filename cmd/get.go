package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Nao-Mk2/awslogs/internal/client"
	"github.com/Nao-Mk2/awslogs/internal/inspector"
	"github.com/Nao-Mk2/awslogs/internal/logging"
	"github.com/Nao-Mk2/awslogs/internal/merger"
	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/output"
	"github.com/Nao-Mk2/awslogs/internal/resolver"
	"github.com/Nao-Mk2/awslogs/internal/watch"
)

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <group> [stream-pattern]",
		Short: "Print or follow the events of a log group",
		Long: `Print the events of a log group merged across its streams in timestamp
order. The stream pattern is ALL (the default), an exact stream name, or a
regular expression matched against whole stream names.

Examples:
  awslogs get /aws/lambda/fn
  awslogs get /aws/lambda/fn 'web-.*' -s 2h -e 1h
  awslogs get /aws/ecs/api ALL --watch -f ERROR`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.options()
			if err != nil {
				return err
			}
			patternText := resolver.AllStreams
			if len(args) == 2 {
				patternText = args[1]
			}
			pattern, err := resolver.ParsePattern(patternText)
			if err != nil {
				return err
			}
			format, err := o.FormatOptions()
			if err != nil {
				return err
			}
			now := a.clock.Now()
			start, end, err := ResolveTimeWindow(o.Start, o.End, now, o.Watch)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cli, err := a.newClient(ctx, o.Auth(), a.log)
			if err != nil {
				return err
			}
			insp := inspector.New(
				cli,
				resolver.New(cli, client.MaxFilterStreams, a.log),
				merger.New(merger.DefaultRetention, a.log),
				inspector.Config{
					Group:         args[0],
					Pattern:       pattern,
					FilterPattern: o.FilterPattern,
					TolerateEmpty: o.Watch,
				},
				a.log,
			)
			if o.Workers > 0 {
				insp.SetWorkers(o.Workers)
			}
			f := output.NewFormatter(a.stdout, format)

			if o.Watch {
				loop := watch.New(insp,
					watch.WithClock(a.clock),
					watch.WithInterval(o.Interval()),
					watch.WithLogger(a.log),
				)
				return loop.Run(ctx, start, f.Write)
			}

			w := model.Window{End: now.UnixMilli()}
			if start.Valid {
				w.Start = start.Millis
			}
			if end.Valid {
				w.End = end.Millis
			}
			res, err := insp.Poll(ctx, w, f.Write)
			if err != nil {
				return err
			}
			a.log.Debug("get finished",
				logging.String("group", args[0]),
				logging.String("start", start.String()),
				logging.String("end", end.String()),
				logging.Int("emitted", res.Emitted),
			)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringP(keyStart, "s", "", "start time (default 5m, or now with --watch)")
	fl.StringP(keyEnd, "e", "", "end time, exclusive (default now)")
	fl.BoolP(keyWatch, "w", false, "keep polling for new events")
	fl.DurationP(keyWatchInterval, "i", watch.DefaultInterval, "sleep between polls in watch mode")
	fl.StringP(keyFilterPattern, "f", "", "CloudWatch Logs filter pattern")
	fl.BoolP(keyNoGroup, "G", false, "do not print the group name")
	fl.BoolP(keyNoStream, "S", false, "do not print the stream name")
	fl.Bool(keyTimestamp, false, "print the event timestamp")
	fl.Bool(keyIngestionTime, false, "print the ingestion time")
	fl.StringP(keyQuery, "q", "", "JMESPath query applied to JSON messages")
	fl.String(keyColor, string(output.ColorAuto), "highlight output: auto, always or never")
	fl.Int(keyWorkers, inspector.DefaultWorkers, "maximum concurrent fetches per poll")
	return cmd
}
