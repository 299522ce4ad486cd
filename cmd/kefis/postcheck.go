package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kefis/kefis/internal/db"
)

var postCheckFlags struct {
	JobHistoryLimit int
}

var postIngestionCheckCmd = &cobra.Command{
	Use:   "post-ingestion-check",
	Short: "Summarize audit severity distribution and recent job health after a run",
	Long: `post-ingestion-check is a quick sanity pass run after etl/backfill: it
reports how many audit findings fall into each severity bucket and
lists the most recent ingestion_jobs rows per source, so an operator
can spot a source that's silently failing or a parser that's stopped
finding any CRITICAL findings it used to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := db.Connect(ctx)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		store := db.NewStore(pool)

		severities, err := store.GetAuditSeverityCounts(ctx)
		if err != nil {
			return fmt.Errorf("severity counts: %w", err)
		}

		sevTable := table.NewWriter()
		sevTable.SetOutputMirror(os.Stdout)
		sevTable.AppendHeader(table.Row{"Severity", "Count"})
		for _, s := range severities {
			sevTable.AppendRow(table.Row{s.Severity, s.Count})
		}
		fmt.Println("Audit finding severities:")
		sevTable.Render()

		for _, source := range []string{"treasury", "cob", "oag", "knbs", "opendata", "cra"} {
			jobs, err := store.GetJobHistory(ctx, source, postCheckFlags.JobHistoryLimit)
			if err != nil {
				return fmt.Errorf("job history for %s: %w", source, err)
			}
			if len(jobs) == 0 {
				continue
			}
			jobTable := table.NewWriter()
			jobTable.SetOutputMirror(os.Stdout)
			jobTable.AppendHeader(table.Row{"Status", "Docs Found", "Docs Fetched", "Records Loaded", "Started At", "Error"})
			for _, j := range jobs {
				jobTable.AppendRow(table.Row{j.Status, j.DocsFound, j.DocsFetched, j.RecordsLoaded, j.StartedAt, j.Error})
			}
			fmt.Printf("\nRecent jobs for %s:\n", source)
			jobTable.Render()
		}

		return nil
	},
}

func init() {
	postIngestionCheckCmd.Flags().IntVar(&postCheckFlags.JobHistoryLimit, "history-limit", 5, "number of recent jobs to show per source")
	rootCmd.AddCommand(postIngestionCheckCmd)
}
