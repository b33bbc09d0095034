// Package cli implements the efiling cobra commands.
package cli

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/example/efiling/internal/ctxutil"
	"github.com/example/efiling/internal/wire"
)

// commandContext returns the command context carrying the root logger and
// the actor the operation is recorded against.
func commandContext(cmd *cobra.Command, actor string) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logr.NewContext(ctx, wire.Logger().WithValues("command", cmd.CommandPath()))
	return ctxutil.WithActorID(ctx, actor)
}
