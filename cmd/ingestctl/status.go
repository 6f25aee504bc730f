package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent ingestion runs",
	Long: `Show recent ingestion runs, most recent first.

Example:
  ingestctl status
  ingestctl status -p github -l 5`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("provider")
		limit, _ := cmd.Flags().GetInt("limit")

		if err := showStatus(cmd.Context(), name, limit); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show status: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("provider", "p", "", "only show runs of this provider")
	statusCmd.Flags().IntP("limit", "l", 20, "number of runs to show")
}

func showStatus(ctx context.Context, name string, limit int) error {
	filter := store.RunFilter{Limit: limit}
	if name != "" {
		t, err := provider.Parse(name)
		if err != nil {
			return err
		}
		filter.Provider = t.String()
	}

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		return err
	}
	filter.Tenant = cfg.TenantID

	app, err := bootstrap.Open(cfg, logging.Must(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	runs, err := app.Runs.RecentRuns(ctx, filter)
	if err != nil {
		return err
	}
	return printRuns(os.Stdout, runs)
}

func printRuns(out io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No ingestion runs found")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tSTARTED\tDURATION\tUPSERTED\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.Duration().Round(time.Second).String()
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = truncate(*r.ErrorMessage, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Provider, r.Status, r.StartedAt.Format(time.RFC3339), duration, r.RecordsUpserted, errMsg)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
