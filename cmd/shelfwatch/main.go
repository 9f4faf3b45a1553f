// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the shelfwatch CLI.
// shelfwatch reads a Notion reading list, searches WeRead for every book
// that is not yet available, asks an LLM whether a hit is the book and
// readable, writes the verdict back and sends one summary per run.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/shelfwatch/internal/config"
	"github.com/pdiddy/shelfwatch/internal/logging"
	"github.com/pdiddy/shelfwatch/internal/secrets"
	"github.com/pdiddy/shelfwatch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Process-wide state prepared by the root command before any subcommand runs.
var (
	cfg      types.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

// rootCmd is the base command for the shelfwatch CLI.
var rootCmd = &cobra.Command{
	Use:   "shelfwatch",
	Short: "Watch a Notion reading list for books that appear on WeRead",
	Long: `shelfwatch checks every book on a Notion reading list that is not yet marked
available. For each book it searches WeRead, lets an LLM judge whether a hit is
the same book and readable now, writes the verdict back to Notion and, once per
run, notifies WeCom and Feishu about books that became available.

Use "run" for a single pass, "schedule" to run on a cron schedule, and "check"
to judge titles without touching Notion.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, nil)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := s.Names()
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		used, err := config.Setup(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}

		cfg, err = config.Load(viper.GetViper(), s)
		if err != nil {
			return err
		}

		l, closeFn, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		logger, closeLog = l, closeFn
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./shelfwatch.yaml, ./config/shelfwatch.yaml or ~/.config/shelfwatch/shelfwatch.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files (notion-api-token, llm-api-key, ...)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json (overrides logging.format)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
