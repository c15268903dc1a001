package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"identity-broker/internal/logger"
)

func newMigrateCmd(flags *DatabaseFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			logger.Info("schema up to date", map[string]any{"driver": flags.Driver})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return err
		},
	}
}
