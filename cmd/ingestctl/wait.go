package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the database to accept connections",
	Long: `Wait for the database to accept connections by pinging it once a second.

Example:
  ingestctl wait
  ingestctl wait --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		retries, _ := cmd.Flags().GetInt("retries")

		if err := waitForDatabase(cmd.Context(), retries); err != nil {
			fmt.Fprintf(os.Stderr, "Database did not become ready: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitForDatabase(ctx context.Context, retries int) error {
	dbURL, err := getDatabaseURL()
	if err != nil {
		return err
	}
	sqlDB, err := sql.Open("postgres", dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	fmt.Println("Waiting for the database to be ready...")

	for i := 0; i < retries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = sqlDB.PingContext(pingCtx)
		cancel()
		if err == nil {
			fmt.Println()
			fmt.Println("Database is ready!")
			return nil
		}

		fmt.Print(".")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	fmt.Println()
	return fmt.Errorf("database is not ready after %d attempts: %w", retries, err)
}
