package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memindex/internal/config"
)

func init() {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Run:   runConfigShow,
	}

	cfgCmd.AddCommand(showCmd)
	RootCmd.AddCommand(cfgCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		exitErr("load config", err)
	}
	if err := cfg.Encode(os.Stdout); err != nil {
		exitErr("encode config", err)
	}
}
