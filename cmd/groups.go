package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Nao-Mk2/awslogs/internal/model"
	"github.com/Nao-Mk2/awslogs/internal/output"
)

func newGroupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List log groups",
		Long: `List log groups, one name per line, in the order the service returns them.

Examples:
  awslogs groups
  awslogs groups -p /aws/lambda/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.options()
			if err != nil {
				return err
			}
			cli, err := a.newClient(cmd.Context(), o.Auth(), a.log)
			if err != nil {
				return err
			}

			var groups []model.GroupInfo
			for g, err := range cli.ListGroups(cmd.Context(), o.GroupPrefix) {
				if err != nil {
					return err
				}
				groups = append(groups, g)
			}
			if o.Details {
				return output.WriteTable(a.stdout, output.RenderGroups(groups))
			}
			names := make([]string, len(groups))
			for i, g := range groups {
				names[i] = g.Name
			}
			return output.WriteNames(a.stdout, names)
		},
	}

	cmd.Flags().StringP(keyGroupPrefix, "p", "", "only list groups whose name starts with this prefix")
	cmd.Flags().Bool(keyDetails, false, "render a table with retention and stored bytes")
	return cmd
}
