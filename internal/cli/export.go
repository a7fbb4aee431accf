package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries as JSON",
		Long:  "Export stored entries with their checksums. Use --all to include every user.",
		Run:   runExport,
	}

	cmd.Flags().Bool("all", false, "Export every user instead of --user")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	user := getUser()
	if all {
		user = ""
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	entries, err := m.Export(user).Unwrap()
	if err != nil {
		exitErr("export", err)
	}
	printJSON(entries)
}
