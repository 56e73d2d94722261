package cli

import (
	"github.com/spf13/cobra"

	"tabedit/internal/bridge"
)

// newWorkerCmd is the process side of the remote bridge; the editor re-executes its own
// binary with these four paths.
func newWorkerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:    bridge.WorkerCommand + " REQUEST RESPONSE INPUT OUTPUT",
		Short:  "Serve one remote execution request",
		Hidden: true,
		Args:   cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bridge.RunWorker(cmdContext(cmd), bridge.WorkerArgs{
				RequestPath:  args[0],
				ResponsePath: args[1],
				InputPath:    args[2],
				OutputPath:   args[3],
			})
		},
	}
}
