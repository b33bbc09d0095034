package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/config"
	"github.com/example/efiling/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the efiling workspace",
		Long: `Write .efiling/config.json with local defaults and create the lifecycle
and staging databases. An existing config is kept unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := wire.HomeDir()
			force, _ := cmd.Flags().GetBool("force")

			path := config.Path(dir)
			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				fmt.Printf("Config already exists at %s\n", path)
			case err == nil || errors.Is(err, os.ErrNotExist):
				if err := config.SaveConfig(dir, config.Default(dir)); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", path)
			default:
				return fmt.Errorf("failed to check config: %w", err)
			}

			cfg := wire.Config()
			wire.Database()
			fmt.Printf("✓ Lifecycle database ready at %s\n", cfg.Store.SQLitePath)
			fmt.Printf("✓ Staging schema ready (%s)\n", cfg.Staging.Dialect)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  efiling submission create --presenter you@example.com --company 01234567 ...")
			fmt.Println("  efiling serve")

			return nil
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing config with defaults")
	return cmd
}
