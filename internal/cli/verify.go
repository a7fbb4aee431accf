package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "verify [memory-id]",
		Short: "Check a memory's integrity",
		Long:  "Recompute the checksum and re-check the record. A failing memory is marked invalid.",
		Args:  cobra.ExactArgs(1),
		Run:   runVerify,
	}

	RootCmd.AddCommand(cmd)
}

func runVerify(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	res := m.VerifyMemory(getUser(), args[0])
	if !res.OK && len(res.Value) == 0 {
		exitErr("verify", res.Err)
	}
	if len(res.Value) > 0 {
		if err := saveManager(m); err != nil {
			exitErr("save", err)
		}
	}
	printJSON(map[string]any{"id": args[0], "valid": res.OK, "violations": res.Value})
}
