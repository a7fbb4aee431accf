package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/manager"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Long:  "List the user's memories, newest first.",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by types (comma-separated)")
	cmd.Flags().String("tags", "", "Filter by tags (comma-separated, all must match)")
	cmd.Flags().Bool("archived", false, "Include archived memories")
	cmd.Flags().IntP("limit", "l", 50, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	typesStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	archived, _ := cmd.Flags().GetBool("archived")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	types, err := parseTypes(typesStr)
	if err != nil {
		exitErr("list", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	memories, err := m.ListMemories(getUser(), manager.ListParams{
		Types:           types,
		Tags:            splitList(tagsStr),
		IncludeArchived: archived,
		Limit:           limit,
	}).Unwrap()
	if err != nil {
		exitErr("list", err)
	}

	switch {
	case idsOnly:
		for _, mem := range memories {
			fmt.Println(mem.ID)
		}
	case textFormat():
		for _, mem := range memories {
			fmt.Printf("%s  %-11s  %s\n", mem.ID, mem.Type, mem.Summary())
		}
	default:
		printJSON(memories)
	}
}
