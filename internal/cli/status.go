package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/manager"
	"github.com/rcliao/memindex/internal/model"
)

func init() {
	archiveCmd := &cobra.Command{
		Use:   "archive [memory-id]",
		Short: "Archive a memory",
		Long:  "Hide a memory from search and listings without deleting it.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runTransition(args[0], "archive", (*manager.Manager).ArchiveMemory)
		},
	}

	reactivateCmd := &cobra.Command{
		Use:   "reactivate [memory-id]",
		Short: "Reactivate an archived memory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runTransition(args[0], "reactivate", (*manager.Manager).ReactivateMemory)
		},
	}

	RootCmd.AddCommand(archiveCmd, reactivateCmd)
}

func runTransition(id, op string, fn func(*manager.Manager, string, string) manager.Result[*model.Entry]) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	e, err := fn(m, getUser(), id).Unwrap()
	if err != nil {
		exitErr(op, err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	printJSON(map[string]any{"id": id, "status": e.Status, "version": e.Version})
}
