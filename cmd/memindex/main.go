package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/rcliao/memindex/internal/cli"
)

func main() {
	// A .env in the working directory may supply MEMINDEX_* settings.
	_ = godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
