package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "related [memory-id]",
		Short: "Find memories related to one memory",
		Long:  "List memories sharing keywords or tags with the given memory.",
		Args:  cobra.ExactArgs(1),
		Run:   runRelated,
	}

	cmd.Flags().IntP("limit", "l", search.DefaultRelatedLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRelated(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	related, err := m.RelatedMemories(getUser(), args[0], limit).Unwrap()
	if err != nil {
		exitErr("related", err)
	}

	if textFormat() {
		for _, r := range related {
			fmt.Printf("%.3f  %s  shared: %s\n", r.Score, r.Entry.Memory.ID, strings.Join(r.Shared, ", "))
		}
		return
	}
	printJSON(related)
}
