package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/ports/primary"
	"github.com/example/efiling/internal/wire"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a lifecycle sweep once",
	Long:  "Run one of the scheduled sweeps immediately. Sweeps select by status, so reruns are safe.",
}

func sweepRunCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd, "sweep:"+name)
			return wire.SweepAdapter().Run(ctx, name)
		},
	}
}

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	sweepCmd.AddCommand(sweepRunCmd(primary.SweepProcessFiles, "Dispatch files of SUBMITTED submissions for conversion"))
	sweepCmd.AddCommand(sweepRunCmd(primary.SweepSubmitToFes, "Load READY_FOR_FES submissions into FES staging"))
	delayed := sweepRunCmd(primary.SweepDelayed, "Report submissions stuck in PROCESSING")
	delayed.Aliases = []string{"delayed"}
	sweepCmd.AddCommand(delayed)
	return sweepCmd
}
