package cli

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

// renderTable prints rows in aligned columns with a two-space gutter.
// Column widths account for wide runes, so site names or checklist text in
// CJK scripts still line up.
func renderTable(o *IO, rows [][]string) {
	widths := []int{}

	for _, row := range rows {
		for col, cell := range row {
			if col >= len(widths) {
				widths = append(widths, 0)
			}

			if w := runewidth.StringWidth(cell); w > widths[col] {
				widths[col] = w
			}
		}
	}

	for _, row := range rows {
		var b strings.Builder

		for col, cell := range row {
			if col > 0 {
				b.WriteString("  ")
			}

			b.WriteString(cell)

			if col < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[col]-runewidth.StringWidth(cell)))
			}
		}

		o.Println(b.String())
	}
}
