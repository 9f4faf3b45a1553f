// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfwatch/internal/booklist"
	"github.com/pdiddy/shelfwatch/internal/config"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Judge books without touching Notion",
	Long: `Check runs the search and judge stages for one title given by flags, or
for every pending book in a YAML book list:

  books:
    - title: 三体
      author: 刘慈欣
    - title: 球状闪电

With --write the verdicts are written back into the file the same way they
would be written to Notion, and a run summary is stored at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		author, _ := cmd.Flags().GetString("author")
		file, _ := cmd.Flags().GetString("file")
		write, _ := cmd.Flags().GetBool("write")
		withNotify, _ := cmd.Flags().GetBool("notify")
		asJSON, _ := cmd.Flags().GetBool("json")

		if (title == "") == (file == "") {
			return errors.New("give exactly one of --title or --file")
		}
		if write && file == "" {
			return errors.New("--write needs --file")
		}

		checks := []config.Check{config.LLM, config.Search}
		if withNotify {
			checks = append(checks, config.Notification)
		}
		if err := config.Validate(cfg, checks...); err != nil {
			return err
		}

		var store *booklist.Store
		switch {
		case title != "":
			store = booklist.NewMemory(types.BookRecord{Title: title, Author: author})
		case write:
			unlock, err := lockRun(file + ".lock")
			if err != nil {
				return err
			}
			defer unlock()
			s, err := booklist.Open(file)
			if err != nil {
				return err
			}
			store = s
		default:
			s, err := booklist.Open(file)
			if err != nil {
				return err
			}
			store = booklist.NewMemory(s.Records()...)
		}

		var progress io.Writer = os.Stdout
		if asJSON {
			progress = nil
		}
		orch, err := newOrchestrator(pipelineSetup{
			store:    store,
			notify:   withNotify,
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
		if write {
			if err := store.SetSummary(res.Report); err != nil {
				return fmt.Errorf("saving run summary: %w", err)
			}
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
	checkCmd.Flags().String("title", "", "book title to check")
	checkCmd.Flags().String("author", "", "author, narrows the search (with --title)")
	checkCmd.Flags().String("file", "", "YAML book list to check")
	checkCmd.Flags().Bool("write", false, "write verdicts back into --file")
	checkCmd.Flags().Bool("notify", false, "send the run notification")
	checkCmd.Flags().Bool("json", false, "print the run report as JSON instead of progress lines")

	rootCmd.AddCommand(checkCmd)
}
