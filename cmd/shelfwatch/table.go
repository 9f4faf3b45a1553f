// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// column describes one table column. maxWidth 0 means unbounded; longer
// cells wrap.
type column struct {
	header   string
	align    columnAlignment
	maxWidth int
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header
		align := text.AlignLeft
		if c.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.maxWidth,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// printReport writes one row per checked record and a totals line.
func printReport(w io.Writer, r types.RunReport) {
	columns := []column{
		{header: "Title", maxWidth: 30},
		{header: "Outcome"},
		{header: "Confidence", align: alignRight},
		{header: "Detail", maxWidth: 60},
	}
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		title := res.Title
		if res.Author != "" {
			title += " (" + res.Author + ")"
		}
		confidence, detail := "", res.Error
		if res.Verdict != nil {
			confidence = strconv.FormatFloat(res.Verdict.Confidence, 'f', 2, 64)
			if detail == "" {
				detail = res.Verdict.Rationale
			}
		}
		rows = append(rows, []string{title, string(res.Outcome), confidence, detail})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(columns, rows))
	}

	fmt.Fprintf(w, "run %s: %d checked, %d available, %d pending, %d not found, %d skipped, %d failed in %s\n",
		r.RunID, len(r.Results),
		r.Count(types.OutcomeAvailable), r.Count(types.OutcomePending), r.Count(types.OutcomeNotFound),
		r.Count(types.OutcomeSkipped), r.Count(types.OutcomeFailed),
		r.Duration().Round(100*time.Millisecond))
	if r.Interrupted {
		fmt.Fprintln(w, "run was interrupted before every book was checked")
	}
	if r.NotifyError != "" {
		fmt.Fprintf(w, "notification failed: %s\n", r.NotifyError)
	}
}
