package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"brands-console/internal/services"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var owner string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List brands, optionally filtered by owner name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s := opts.open(cmd)
			defer s.close()

			state, err := s.load(ctx)
			if err != nil {
				return err
			}
			if owner != "" {
				state, err = s.view.ApplyFilter(ctx, owner)
				if err != nil {
					return fmt.Errorf("failed to search brands: %w", err)
				}
				if state.Error != "" {
					return fmt.Errorf("failed to search brands: %s", state.Error)
				}
			}

			return printBrands(cmd.OutOrStdout(), state)
		},
	}

	listCmd.Flags().StringVar(&owner, "owner", "", "only show brands whose owner matches this name")
	return listCmd
}

func printBrands(out io.Writer, state services.ViewState) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tOWNER")
	for _, b := range state.Brands {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.ID, b.Name, b.Status, b.Owner.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\n%d brands, %d approved, %d owners\n",
		state.Stats.Total, state.Stats.Approved, state.Stats.UniqueOwners)
	return err
}
