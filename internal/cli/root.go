// Package cli implements the memindex CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/config"
	"github.com/rcliao/memindex/internal/manager"
	"github.com/rcliao/memindex/internal/model"
)

var (
	configPath string
	dataPath   string
	userFlag   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memindex",
	Short: "Typed, ranked memory for AI agents",
	Long: "A CLI over an in-memory store of typed user memories with ranked search.\n" +
		"State is loaded from and saved to a JSON snapshot between invocations.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MEMINDEX_CONFIG or ~/.memindex/config.yaml if present)")
	RootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Snapshot path (default: $MEMINDEX_DATA or ~/.memindex/memories.json)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User id (default: $MEMINDEX_USER or \"default\")")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func homePath(name string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memindex", name)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("MEMINDEX_CONFIG"); env != "" {
		return env
	}
	if p := homePath("config.yaml"); fileExists(p) {
		return p
	}
	return ""
}

func getDataPath() string {
	if dataPath != "" {
		return dataPath
	}
	if env := os.Getenv("MEMINDEX_DATA"); env != "" {
		return env
	}
	return homePath("memories.json")
}

func getUser() string {
	if userFlag != "" {
		return userFlag
	}
	if env := os.Getenv("MEMINDEX_USER"); env != "" {
		return env
	}
	return "default"
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// snapshot is the on-disk state between invocations.
type snapshot struct {
	Entries  []model.Entry    `json:"entries"`
	Contexts []*model.Context `json:"contexts,omitempty"`
}

func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func writeSnapshot(path string, snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// openManager builds an initialized manager from the config and restores
// the snapshot into it.
func openManager() (*manager.Manager, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = cfg.NewLogger(os.Stderr)

	m, err := manager.New(opts)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(); err != nil {
		return nil, err
	}

	snap, err := readSnapshot(getDataPath())
	if err != nil {
		closeManager(m)
		return nil, err
	}
	if _, err := m.Import(snap.Entries).Unwrap(); err != nil {
		closeManager(m)
		return nil, fmt.Errorf("restore entries: %w", err)
	}
	if _, err := m.ImportContexts(snap.Contexts).Unwrap(); err != nil {
		closeManager(m)
		return nil, fmt.Errorf("restore contexts: %w", err)
	}
	return m, nil
}

// saveManager writes the manager's full state back to the snapshot.
func saveManager(m *manager.Manager) error {
	entries, err := m.Export("").Unwrap()
	if err != nil {
		return err
	}
	ctxs, err := m.ExportContexts("").Unwrap()
	if err != nil {
		return err
	}
	return writeSnapshot(getDataPath(), &snapshot{Entries: entries, Contexts: ctxs})
}

func closeManager(m *manager.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: shutdown: %v\n", err)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textFormat() bool { return formatFlag == "text" }

func exitErr(msg string, err error) {
	var f *manager.Failure
	if errors.As(err, &f) && len(f.Fields) > 0 {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", msg, f.Code)
		for _, fe := range f.Fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fe.Field, fe.Message)
		}
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
