package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from JSON",
		Long:  "Import entries from a file or stdin. Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	var entries []model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		exitErr("parse json", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	res := m.Import(entries)
	if res.Value > 0 {
		if err := saveManager(m); err != nil {
			exitErr("save", err)
		}
	}
	if !res.OK {
		exitErr(fmt.Sprintf("import (stopped after %d)", res.Value), res.Err)
	}
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", res.Value)
}
