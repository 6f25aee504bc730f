package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ingestctl",
	Short: "Cloud identity ingestion",
	Long: `Sync identities and permissions from cloud providers into Postgres,
resolve canonical identities and rebuild resource access grants.`,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
