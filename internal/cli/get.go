package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [memory-id]",
		Short: "Retrieve a memory",
		Long:  "Retrieve one of the user's memories. Archived memories are returned too.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	mem, err := m.GetMemory(getUser(), args[0]).Unwrap()
	if err != nil {
		exitErr("get", err)
	}
	if mem == nil {
		exitErr("get", fmt.Errorf("memory %s not found", args[0]))
	}
	// A read bumps the access counters.
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	if textFormat() {
		fmt.Println(mem.Summary())
		return
	}
	printJSON(mem)
}
