package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kefis/kefis/internal/ingest"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule-report",
	Short: "Show which configured sources are due to run today",
	Long: `schedule-report evaluates the calendar-aware schedule for every
configured source against the current date and prints whether it's
due to run today and why — the same season/quarter-end/routine
cascade the hourly scheduler driver uses, without actually running
anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := ingest.LoadRegistry(globalFlags.RegistryPath)
		if err != nil {
			return fmt.Errorf("load registry: %w", err)
		}

		now := time.Now()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Due Today", "Reason"})
		for _, src := range registry.Sources {
			should, reason := ingest.ShouldRun(src.Key, now)
			t.AppendRow(table.Row{src.Key, should, reason})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
