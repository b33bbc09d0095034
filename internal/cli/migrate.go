package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/adapters/staging"
	"github.com/example/efiling/internal/db"
	"github.com/example/efiling/internal/wire"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd, "migrate")
			database := wire.Database()

			applied, err := db.ApplyPending(database)
			if err != nil {
				return err
			}
			current, err := db.CurrentVersion(database)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Lifecycle schema at version %d (%d applied)\n", current, applied)

			cfg := wire.Config()
			stagingDB, err := staging.Open(cfg.Staging.Dialect, cfg.Staging.DSN, wire.Logger().WithName("staging"))
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := stagingDB.DB(); err == nil {
					sqlDB.Close()
				}
			}()
			if err := staging.Migrate(ctx, stagingDB); err != nil {
				return err
			}
			fmt.Printf("✓ Staging schema migrated (%s)\n", cfg.Staging.Dialect)
			return nil
		},
	}
}
