package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// renderTable draws a rounded table. Column indexes listed in rightAlign are
// right-aligned; everything else stays left-aligned.
func renderTable(headers []string, rows [][]string, rightAlign ...int) string {
	if len(headers) == 0 {
		return ""
	}

	right := make(map[int]bool, len(rightAlign))
	for _, col := range rightAlign {
		right[col] = true
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// toRow widens or narrows cells to exactly width columns so ragged rows
// render cleanly.
func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusKind pairs the bracketed label on a status line with the color used
// when the output is a terminal.
type statusKind struct {
	label string
	color string
}

var (
	statusInfo  = statusKind{"INFO", ansiBlue}
	statusOK    = statusKind{"OK", ansiGreen}
	statusWarn  = statusKind{"WARN", ansiYellow}
	statusError = statusKind{"ERROR", ansiRed}
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	detail := "[" + kind.label + "]"
	if message != "" {
		detail += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", detail)
	if colorize && kind.color != "" {
		line = kind.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	head := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(head))
	if !colorize {
		return []string{head, rule}
	}
	return []string{ansiBlue + head + ansiReset, ansiBlue + rule + ansiReset}
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func formatSpan(start, end float64) string {
	return fmt.Sprintf("%.1f-%.1fs", start, end)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
