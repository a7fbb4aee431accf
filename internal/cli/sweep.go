package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired and deleted memories now",
		Run:   runSweep,
	}

	RootCmd.AddCommand(cmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	removed, err := m.Sweep().Unwrap()
	if err != nil {
		exitErr("sweep", err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	fmt.Printf(`{"ok":true,"removed":%d}`+"\n", removed)
}
