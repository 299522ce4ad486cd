package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kefis/kefis/internal/ingest"
	"github.com/kefis/kefis/internal/ports"
)

var etlFlags struct {
	Limit       int
	SummaryJSON string
	SummaryTSV  string
	Monitor     bool
}

var etlCmd = &cobra.Command{
	Use:   "etl [source ...]",
	Short: "Run discover -> fetch -> extract -> parse -> load for one or more sources",
	Long: `etl runs the full ingestion pipeline. With no arguments it runs every
configured source; pass one or more source keys (treasury, cob, oag,
knbs, opendata, cra) to run a subset. --limit caps the number of
documents fetched per source, useful for a quick smoke run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipeline, _, cleanup, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var results []*ingest.SourceResult
		run := func(ctx context.Context) error {
			if len(args) == 0 {
				results = pipeline.IngestAll(ctx, etlFlags.Limit)
				return nil
			}
			for _, key := range args {
				res, err := pipeline.IngestSource(ctx, key, etlFlags.Limit)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", key, err)
				}
				results = append(results, res)
			}
			return nil
		}

		if etlFlags.Monitor {
			mon := &ingest.Monitor{Notifier: ports.LogNotifier{}}
			metrics := mon.RunPipeline(ctx, "etl", run)
			if !metrics.Success {
				return fmt.Errorf("etl run failed: %s", metrics.Error)
			}
		} else if err := run(ctx); err != nil {
			return err
		}

		if etlFlags.SummaryJSON != "" || etlFlags.SummaryTSV != "" {
			jsonPath := etlFlags.SummaryJSON
			tsvPath := etlFlags.SummaryTSV
			if jsonPath == "" {
				jsonPath = "etl_summary.json"
			}
			if tsvPath == "" {
				tsvPath = "etl_summary.tsv"
			}
			if err := ingest.WriteSummary(results, jsonPath, tsvPath); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	etlCmd.Flags().IntVar(&etlFlags.Limit, "limit", 0, "cap documents fetched per source (0 = unbounded)")
	etlCmd.Flags().StringVar(&etlFlags.SummaryJSON, "summary-json", "", "write a JSON run summary to this path")
	etlCmd.Flags().StringVar(&etlFlags.SummaryTSV, "summary-tsv", "", "write a TSV run summary to this path")
	etlCmd.Flags().BoolVar(&etlFlags.Monitor, "monitor", false, "wrap the run with timing/failure notifications")
	rootCmd.AddCommand(etlCmd)
}
