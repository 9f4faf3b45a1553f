// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfwatch/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every pending book on the reading list once",
	Long: `Run reads every book on the Notion reading list that is not yet marked
available, searches WeRead, judges the hits, writes each verdict back and sends
one notification for the books that became available. The run takes
scheduler.lock_file, so it refuses to start while "schedule" is mid-run.

A failure on one book is reported and the run moves on. Interrupting the run
stops it between books; books already checked keep their new state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noNotify, _ := cmd.Flags().GetBool("no-notify")
		asJSON, _ := cmd.Flags().GetBool("json")

		checks := []config.Check{config.Notion, config.LLM, config.Search}
		if !noNotify {
			checks = append(checks, config.Notification)
		}
		if err := config.Validate(cfg, checks...); err != nil {
			return err
		}

		unlock, err := lockRun(cfg.Scheduler.LockFile)
		if err != nil {
			return err
		}
		defer unlock()

		led, err := openLedger()
		if err != nil {
			return err
		}
		if led != nil {
			defer led.Close()
		}

		var progress io.Writer = os.Stdout
		if asJSON {
			progress = nil
		}
		orch, err := newOrchestrator(pipelineSetup{
			store:    newNotionStore(),
			notify:   !noNotify,
			ledger:   led,
			progress: progress,
		})
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		res, err := orch.Run(ctx)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Report)
		}
		fmt.Println()
		printReport(os.Stdout, res.Report)
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("no-notify", false, "skip the run notification")
	runCmd.Flags().Bool("json", false, "print the run report as JSON instead of progress lines")

	rootCmd.AddCommand(runCmd)
}
