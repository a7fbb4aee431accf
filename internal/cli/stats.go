package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/manager"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store and cache statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	*manager.Stats
	DataPath     string `json:"data_path"`
	DataBytes    int64  `json:"data_bytes"`
	DataModified string `json:"data_modified,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	m, err := openManager()
	if err != nil {
		exitErr("open manager", err)
	}
	defer closeManager(m)

	stats, err := m.Stats().Unwrap()
	if err != nil {
		exitErr("stats", err)
	}
	out := statsOutput{Stats: stats, DataPath: getDataPath()}
	if fi, err := os.Stat(out.DataPath); err == nil {
		out.DataBytes = fi.Size()
		out.DataModified = humanize.Time(fi.ModTime())
	}

	if !textFormat() {
		printJSON(out)
		return
	}
	s := stats.Store
	fmt.Printf("snapshot:  %s (%s, modified %s)\n", out.DataPath, humanize.Bytes(uint64(out.DataBytes)), out.DataModified)
	fmt.Printf("entries:   %s total, %s active, %s archived, %s expired, %s invalid\n",
		humanize.Comma(int64(s.TotalEntries)), humanize.Comma(int64(s.ActiveEntries)),
		humanize.Comma(int64(s.ArchivedEntries)), humanize.Comma(int64(s.ExpiredEntries)),
		humanize.Comma(int64(s.InvalidEntries)))
	fmt.Printf("users:     %d\n", len(s.Users))
	fmt.Printf("contexts:  %d\n", stats.Contexts)
	fmt.Printf("indexes:   %d keywords, %d tags, %d types\n", s.Indexes.Keywords, s.Indexes.Tags, s.Indexes.Types)
	fmt.Printf("cache:     %d keys, %s, hit rate %.1f%%\n", stats.Cache.Keys, humanize.Bytes(uint64(stats.Cache.Bytes)), stats.Cache.HitRate*100)
}
