package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"brands-console/internal/wizard"
)

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var brandName, ownerName string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a brand with its owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s := opts.open(cmd)
			defer s.close()

			w := s.view.Wizard()
			w.SetBrandName(brandName)
			if err := w.Next(); err != nil {
				return flagError(err, "--brand")
			}
			w.SetOwnerName(ownerName)
			if err := w.Next(); err != nil {
				return flagError(err, "--owner")
			}

			created, err := w.Submit(ctx)
			if err != nil {
				return err
			}
			s.printNotifications(cmd.OutOrStdout())

			fmt.Fprintf(cmd.OutOrStdout(), "Created brand %s (%s) owned by %s\n",
				created.Name, created.Status, created.OwnerName)
			return nil
		},
	}

	createCmd.Flags().StringVar(&brandName, "brand", "", "brand name (required)")
	createCmd.Flags().StringVar(&ownerName, "owner", "", "owner name (required)")
	return createCmd
}

func flagError(err error, flag string) error {
	if errors.Is(err, wizard.ErrCannotContinue) {
		return fmt.Errorf("%s is required", flag)
	}
	return err
}
