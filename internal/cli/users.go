package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "User management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all users with stored memories",
		Run:   runUsersList,
	}

	usersCmd.AddCommand(listCmd)
	RootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	stats, err := m.Stats().Unwrap()
	if err != nil {
		exitErr("list users", err)
	}
	if textFormat() {
		for _, u := range stats.Store.Users {
			fmt.Printf("%-24s %s memories (%s active)\n", u.UserID, humanize.Comma(int64(u.Count)), humanize.Comma(int64(u.Active)))
		}
		return
	}
	printJSON(stats.Store.Users)
}
