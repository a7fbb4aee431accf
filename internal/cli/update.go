package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [memory-id]",
		Short: "Patch a memory",
		Long: "Patch fields of an existing memory. The patched record is validated again;\n" +
			"its type cannot change.",
		Args: cobra.ExactArgs(1),
		Run:  runUpdate,
	}

	cmd.Flags().StringArray("field", nil, "Field as name=value (repeatable)")
	cmd.Flags().String("json", "", "Raw JSON object of fields")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	fields, _ := cmd.Flags().GetStringArray("field")
	rawJSON, _ := cmd.Flags().GetString("json")

	patch := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &patch); err != nil {
			exitErr("parse --json", err)
		}
	}
	if err := parseFields(patch, fields); err != nil {
		exitErr("update", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	mem, err := m.UpdateMemory(getUser(), args[0], patch).Unwrap()
	if err != nil {
		exitErr("update", err)
	}
	if err := saveManager(m); err != nil {
		exitErr("save", err)
	}
	printJSON(mem)
}
