package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/cli"
	"github.com/example/efiling/internal/version"
	"github.com/example/efiling/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "efiling",
		Short:   "efiling - submission lifecycle engine and FES loader",
		Version: version.String(),
		Long: `efiling tracks filing submissions from presenter completion through document
conversion to the FES staging schema, and records the FES outcome.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				os.Setenv("EFILING_LOG_LEVEL", level)
			}
		},
	}
	rootCmd.PersistentFlags().String("log-level", "", "Log level (error, info, verbose, debug, trace)")

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.SubmissionCmd())
	rootCmd.AddCommand(cli.ReportCmd())
	rootCmd.AddCommand(cli.NotificationsCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	err := rootCmd.Execute()
	wire.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
