// Package static provides non-interactive terminal output components.
package static

import (
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"

	"github.com/raphi011/cicache/internal/keystore"
	"github.com/raphi011/cicache/internal/ui/styles"
)

// EntryHeaders are the columns of the cache entry table.
var EntryHeaders = []string{"ROOT", "KEY", "FILES", "SIZE", "UPDATED"}

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var output strings.Builder

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// EntryTableRow formats an entry as a row matching EntryHeaders.
func EntryTableRow(e keystore.Entry, now time.Time) []string {
	return []string{
		styles.MutedStyle.Render(e.Root),
		e.Key,
		strconv.Itoa(e.Files),
		humanize.Bytes(uint64(e.Size)),
		humanize.RelTime(e.Updated, now, "ago", "from now"),
	}
}
