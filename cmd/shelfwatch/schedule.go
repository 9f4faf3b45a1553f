// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/config"
	"github.com/pdiddy/shelfwatch/internal/schedule"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the check on a cron schedule until interrupted",
	Long: `Schedule runs the same pass as "run" whenever the cron expression in
scheduler.cron fires, evaluated in scheduler.timezone. Overlapping runs are
skipped. With scheduler.listen set, a small HTTP server exposes /healthz,
/status and POST /run.

The process exits on SIGINT or SIGTERM after the run in progress stops.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("run-on-start") {
			cfg.Scheduler.RunOnStart, _ = cmd.Flags().GetBool("run-on-start")
		}
		if cmd.Flags().Changed("listen") {
			cfg.Scheduler.Listen, _ = cmd.Flags().GetString("listen")
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		led, err := openLedger()
		if err != nil {
			return err
		}
		if led != nil {
			defer led.Close()
		}

		orch, err := newOrchestrator(pipelineSetup{
			store:  newNotionStore(),
			notify: true,
			ledger: led,
		})
		if err != nil {
			return err
		}

		job := func(ctx context.Context) (types.RunReport, error) {
			res, err := orch.Run(ctx)
			return res.Report, err
		}
		s, err := schedule.New(cfg.Scheduler, job, logger)
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		err = s.Run(ctx)
		logger.Info("scheduler stopped", zap.Error(err))
		return err
	},
}

func init() {
	scheduleCmd.Flags().Bool("run-on-start", false, "run once immediately (overrides scheduler.run_on_start)")
	scheduleCmd.Flags().String("listen", "", "status server address, e.g. 127.0.0.1:8089 (overrides scheduler.listen)")

	rootCmd.AddCommand(scheduleCmd)
}
