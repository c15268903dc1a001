// Package app holds the brokerctl commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"identity-broker/internal/config"
	"identity-broker/internal/db"
)

// DatabaseFlags selects the store the commands operate on. Defaults come
// from the same variables the server reads.
type DatabaseFlags struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DSN    string `env:"DATABASE_DSN"`
}

func NewRootCmd() *cobra.Command {
	var flags DatabaseFlags
	if err := env.Parse(&flags); err != nil {
		flags.Driver = config.DriverPostgres
	}

	root := &cobra.Command{
		Use:           "brokerctl",
		Short:         "Administer the identity broker's database",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.Driver, "driver", flags.Driver, "storage driver (postgres or sqlite)")
	root.PersistentFlags().StringVar(&flags.DSN, "dsn", flags.DSN, "database connection string")

	root.AddCommand(newMigrateCmd(&flags))
	root.AddCommand(newClientCmd(&flags))
	return root
}

// open connects and migrates, so every command sees the current schema.
func (f *DatabaseFlags) open(ctx context.Context) (*db.DB, error) {
	if f.Driver == config.DriverMemory {
		return nil, errors.New("the memory driver has nothing to administer")
	}
	if f.DSN == "" {
		return nil, errors.New("--dsn or DATABASE_DSN is required")
	}

	d, err := db.Open(ctx, f.Driver, f.DSN)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}
