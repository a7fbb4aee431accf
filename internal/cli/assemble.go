package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assemble [description]",
		Short: "Assemble relevant memories for a task",
		Long:  "Search and score memories, then greedily pack them into a token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAssemble,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by types (comma-separated)")
	cmd.Flags().String("tags", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("budget", "b", search.DefaultBudget, "Max tokens in output")

	RootCmd.AddCommand(cmd)
}

func runAssemble(cmd *cobra.Command, args []string) {
	typesStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	budget, _ := cmd.Flags().GetInt("budget")

	types, err := parseTypes(typesStr)
	if err != nil {
		exitErr("assemble", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	packing, err := m.AssembleContext(search.Query{
		UserID: getUser(),
		Text:   strings.Join(args, " "),
		Types:  types,
		Tags:   splitList(tagsStr),
	}, budget).Unwrap()
	if err != nil {
		exitErr("assemble", err)
	}

	if textFormat() {
		for _, p := range packing.Memories {
			fmt.Printf("- [%s] %s\n", p.Type, p.Content)
		}
		fmt.Printf("(%d/%d tokens)\n", packing.Used, packing.Budget)
		return
	}
	printJSON(packing)
}
