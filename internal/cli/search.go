package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by relevance",
		Long: "Rank the user's memories against the query by content, keywords, recency,\n" +
			"confidence, priority and access frequency.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by types (comma-separated)")
	cmd.Flags().String("tags", "", "Filter by tags (comma-separated, all must match)")
	cmd.Flags().String("from", "", "Created at or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Created at or before (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Bool("archived", false, "Include archived memories")
	cmd.Flags().Float64("min-relevance", 0, "Minimum score")
	cmd.Flags().Int("offset", 0, "Skip this many results")
	cmd.Flags().IntP("limit", "l", search.DefaultLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	typesStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	archived, _ := cmd.Flags().GetBool("archived")
	minRel, _ := cmd.Flags().GetFloat64("min-relevance")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	types, err := parseTypes(typesStr)
	if err != nil {
		exitErr("search", err)
	}
	from, err := parseTime(fromStr)
	if err != nil {
		exitErr("search", err)
	}
	to, err := parseTime(toStr)
	if err != nil {
		exitErr("search", err)
	}

	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	page, err := m.SearchMemories(search.Query{
		UserID:          getUser(),
		Text:            strings.Join(args, " "),
		Types:           types,
		Tags:            splitList(tagsStr),
		From:            from,
		To:              to,
		IncludeArchived: archived,
		MinRelevance:    minRel,
		Offset:          offset,
		Limit:           limit,
	}).Unwrap()
	if err != nil {
		exitErr("search", err)
	}

	if textFormat() {
		fmt.Printf("%d of %d results\n", len(page.Results), page.Total)
		for _, r := range page.Results {
			fmt.Printf("%.3f  %s  %s\n", r.Score, r.Entry.Memory.ID, r.Explanation)
			if r.Highlight != "" {
				fmt.Printf("       %s\n", r.Highlight)
			}
		}
		return
	}
	printJSON(page)
}
