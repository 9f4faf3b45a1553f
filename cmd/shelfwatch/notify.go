// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfwatch/internal/config"
	"github.com/pdiddy/shelfwatch/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Work with notification channels",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test message on every enabled channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(cfg, config.Notification); err != nil {
			return err
		}
		d := notify.NewDispatcher(cfg.Notification, logger)
		channels := d.Channels()
		if len(channels) == 0 {
			return errors.New("no notification channel is enabled")
		}

		if err := d.Notify(cmd.Context(), notify.TestSummary(time.Now())); err != nil {
			return err
		}
		fmt.Printf("test message sent to %s\n", strings.Join(channels, ", "))
		return nil
	},
}

func init() {
	notifyCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(notifyCmd)
}
