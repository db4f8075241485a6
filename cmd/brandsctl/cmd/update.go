package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"brands-console/internal/models"
)

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	var name, status string

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the name or status of a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBrandID(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("status") {
				return errors.New("nothing to update: pass --name or --status")
			}

			var newName *string
			if cmd.Flags().Changed("name") {
				newName = &name
			}
			var newStatus *models.BrandStatus
			if cmd.Flags().Changed("status") {
				parsed, err := models.ParseBrandStatus(status)
				if err != nil {
					return err
				}
				newStatus = &parsed
			}

			ctx := commandContext(cmd)
			s := opts.open(cmd)
			defer s.close()

			if _, err := s.load(ctx); err != nil {
				return err
			}
			if err := s.view.StartEdit(id); err != nil {
				return err
			}
			if err := s.view.EditDraft(id, newName, newStatus); err != nil {
				return err
			}

			_, err = s.view.SaveEdit(ctx)
			if err != nil {
				return err
			}
			s.printNotifications(cmd.OutOrStdout())
			return nil
		},
	}

	updateCmd.Flags().StringVar(&name, "name", "", "new brand name")
	updateCmd.Flags().StringVar(&status, "status", "", "new status (PENDIENTE, APROBADA, RECHAZADA)")
	return updateCmd
}

func parseBrandID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid brand id %q", raw)
	}
	return id, nil
}
