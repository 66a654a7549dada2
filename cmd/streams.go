package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/output"
)

func newStreamsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams <group>",
		Short: "List the streams of a log group",
		Long: `List the streams of a log group, one name per line. With --start or --end
only streams with events in that window are listed.

Examples:
  awslogs streams /aws/lambda/fn
  awslogs streams /aws/lambda/fn -s 1h --details`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.options()
			if err != nil {
				return err
			}
			var w model.Window
			if o.Start != "" || o.End != "" {
				// Listing has no implicit start; pass watching to skip the default.
				start, end, err := ResolveTimeWindow(o.Start, o.End, a.clock.Now(), true)
				if err != nil {
					return err
				}
				if start.Valid {
					w.Start = start.Millis
				}
				if end.Valid {
					w.End = end.Millis
				}
			}

			cli, err := a.newClient(cmd.Context(), o.Auth(), a.log)
			if err != nil {
				return err
			}
			var streams []model.StreamInfo
			for s, err := range cli.ListStreams(cmd.Context(), args[0], model.OrderByName) {
				if err != nil {
					return err
				}
				if (w.HasStart() || w.HasEnd()) && !s.Overlaps(w) {
					continue
				}
				streams = append(streams, s)
			}

			if o.Details {
				return output.WriteTable(a.stdout, output.RenderStreams(streams))
			}
			names := make([]string, len(streams))
			for i, s := range streams {
				names[i] = s.Name
			}
			return output.WriteNames(a.stdout, names)
		},
	}

	cmd.Flags().StringP(keyStart, "s", "", "only streams with events after this time (e.g. 1h, 2 days ago, 2025-08-31T12:00:00Z)")
	cmd.Flags().StringP(keyEnd, "e", "", "only streams with events before this time")
	cmd.Flags().Bool(keyDetails, false, "render a table with first and last event times")
	return cmd
}
