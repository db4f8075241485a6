package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"brands-console/internal/services"
)

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBrandID(args[0])
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			s := opts.open(cmd)
			defer s.close()

			if _, err := s.load(ctx); err != nil {
				return err
			}

			err = s.view.Delete(ctx, id, yes)
			if errors.Is(err, services.ErrConfirmationRequired) {
				return errors.New("refusing to delete without --yes")
			}
			if err != nil {
				return err
			}
			s.printNotifications(cmd.OutOrStdout())
			return nil
		},
	}

	deleteCmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return deleteCmd
}
