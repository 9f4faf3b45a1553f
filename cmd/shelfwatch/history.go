// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfwatch/internal/ledger"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent checks from the local ledger",
	Long: `History prints the most recent per-book checks recorded by run and
schedule, newest first. Filter by title, outcome or run id; print as a table,
JSON or YAML. With --last it prints the totals of the latest run instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Ledger.Path == "" {
			return errors.New("the ledger is disabled (ledger.path is empty)")
		}
		if _, err := os.Stat(cfg.Ledger.Path); err != nil {
			return fmt.Errorf("no ledger at %s yet: %w", cfg.Ledger.Path, err)
		}

		led, err := ledger.NewStore(cfg.Ledger)
		if err != nil {
			return err
		}
		defer led.Close()

		format, _ := cmd.Flags().GetString("format")
		last, _ := cmd.Flags().GetBool("last")
		if last {
			return printLastRun(cmd, led, format)
		}

		opts := ledger.HistoryOptions{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Title, _ = cmd.Flags().GetString("title")
		opts.Outcome, _ = cmd.Flags().GetString("outcome")
		opts.RunID, _ = cmd.Flags().GetString("run")

		entries, err := led.History(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if format != "table" {
			return ledger.WriteEntries(os.Stdout, format, entries)
		}
		if len(entries) == 0 {
			fmt.Println("no checks recorded")
			return nil
		}

		columns := []column{
			{header: "Checked"},
			{header: "Title", maxWidth: 30},
			{header: "Outcome"},
			{header: "Confidence", align: alignRight},
			{header: "Keyword", maxWidth: 24},
			{header: "Detail", maxWidth: 50},
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			confidence := ""
			if e.Status != "" {
				confidence = strconv.FormatFloat(e.Confidence, 'f', 2, 64)
			}
			detail := e.Rationale
			if e.Error != "" {
				detail = e.ErrorKind + ": " + e.Error
			}
			rows = append(rows, []string{
				e.CheckedAt.Local().Format("2006-01-02 15:04"),
				e.Title,
				e.Outcome,
				confidence,
				e.Keyword,
				detail,
			})
		}
		fmt.Println(renderTable(columns, rows))
		return nil
	},
}

func printLastRun(cmd *cobra.Command, led *ledger.Store, format string) error {
	r, err := led.LastRun(cmd.Context())
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Println("no runs recorded")
		return nil
	}
	if format != "table" {
		return ledger.Write(os.Stdout, format, r)
	}

	notified := "no"
	switch {
	case r.Notified:
		notified = "yes"
	case r.NotifyError != "":
		notified = "failed: " + r.NotifyError
	}
	columns := []column{{header: "Field"}, {header: "Value", maxWidth: 60}}
	rows := [][]string{
		{"Run", r.ID},
		{"Started", r.StartedAt.Local().Format("2006-01-02 15:04:05")},
		{"Duration", r.FinishedAt.Sub(r.StartedAt).Round(100*time.Millisecond).String()},
		{"Checked", strconv.Itoa(r.Total)},
		{string(types.OutcomeAvailable), strconv.Itoa(r.Available)},
		{string(types.OutcomePending), strconv.Itoa(r.Pending)},
		{string(types.OutcomeNotFound), strconv.Itoa(r.NotFound)},
		{string(types.OutcomeSkipped), strconv.Itoa(r.Skipped)},
		{string(types.OutcomeFailed), strconv.Itoa(r.Failed)},
		{"Interrupted", strconv.FormatBool(r.Interrupted)},
		{"Notified", notified},
	}
	fmt.Println(renderTable(columns, rows))
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of checks to show")
	historyCmd.Flags().String("title", "", "only checks whose title contains this text")
	historyCmd.Flags().String("outcome", "", "only checks with this outcome (available, pending, not_found, skipped, failed)")
	historyCmd.Flags().String("run", "", "only checks of this run id")
	historyCmd.Flags().String("format", "table", "output format: table, json or yaml")
	historyCmd.Flags().Bool("last", false, "show the totals of the latest run")

	rootCmd.AddCommand(historyCmd)
}
