// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfwatch/internal/config"
)

var notionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Inspect and prepare the Notion reading list",
}

var notionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Add the columns shelfwatch writes to the reading-list database",
	Long: `Init adds any of 作者, 已上架, 最后检查时间, 搜索关键词 and 备注 the database
lacks. Existing columns under any recognised name are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(cfg, config.Notion); err != nil {
			return err
		}
		added, err := newNotionStore().Init(cmd.Context())
		if err != nil {
			return err
		}
		if len(added) == 0 {
			fmt.Println("database already has every column")
			return nil
		}
		fmt.Printf("added columns: %s\n", strings.Join(added, ", "))
		return nil
	},
}

var notionInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the database columns and how shelfwatch maps them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(cfg, config.Notion); err != nil {
			return err
		}
		cols, schema, err := newNotionStore().Inspect(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(cols))
		for _, c := range cols {
			rows = append(rows, []string{c.Name, c.Type})
		}
		fmt.Println(renderTable([]column{{header: "Column"}, {header: "Type"}}, rows))

		mapping := [][]string{
			{"title", orMissing(schema.Title)},
			{"author", orMissing(schema.Author)},
			{"available", orMissing(schema.Available)},
			{"last checked", orMissing(schema.LastChecked)},
			{"search keyword", orMissing(schema.Keyword)},
			{"notes", orMissing(schema.Notes)},
		}
		fmt.Println(renderTable([]column{{header: "Field"}, {header: "Column"}}, mapping))

		if missing := schema.Missing(); len(missing) > 0 {
			fmt.Printf("missing columns: %s (run \"shelfwatch notion init\")\n", strings.Join(missing, ", "))
		}
		return nil
	},
}

var notionDatabasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the databases shared with the integration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(cfg, config.NotionToken); err != nil {
			return err
		}
		dbs, err := newNotionStore().Databases(cmd.Context())
		if err != nil {
			return err
		}
		if len(dbs) == 0 {
			fmt.Println("no databases are shared with this integration")
			return nil
		}
		rows := make([][]string, 0, len(dbs))
		for _, db := range dbs {
			rows = append(rows, []string{db.Title, db.ID, db.URL})
		}
		fmt.Println(renderTable([]column{{header: "Title", maxWidth: 40}, {header: "ID"}, {header: "URL"}}, rows))
		return nil
	},
}

func orMissing(name string) string {
	if name == "" {
		return "(missing)"
	}
	return name
}

func init() {
	notionCmd.AddCommand(notionInitCmd, notionInspectCmd, notionDatabasesCmd)
	rootCmd.AddCommand(notionCmd)
}
