// Package report renders day plans, scores and impact as text.
package report

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var (
	ansiSequence = regexp.MustCompile("\x1b\\[[0-9;]*m")
	// A quantity cell: a number with an optional unit, such as "12", "91.5",
	// "40%", "450 kcal" or "-120 kcal".
	quantityCell = regexp.MustCompile(`^[+-]?\d+(\.\d+)?(%| ?(kcal|g|mg|mcg|h))?$`)
)

// placeholderCell marks a value that does not exist yet, such as an unscored window.
const placeholderCell = "-"

// formatTable lays out rows under headers. Columns holding only quantities
// (and placeholders) are right-aligned so units line up.
func formatTable(headers []string, rows [][]string) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			if w := displayWidth(cellAt(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	right := quantityColumns(rows, colCount)

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, right))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, right))
	}
	return lines
}

func quantityColumns(rows [][]string, colCount int) []bool {
	right := make([]bool, colCount)
	for i := range right {
		seen := false
		right[i] = true
		for _, row := range rows {
			cell := strings.TrimSpace(stripANSI(cellAt(row, i)))
			if cell == "" || cell == placeholderCell {
				continue
			}
			if !quantityCell.MatchString(cell) {
				right[i] = false
				break
			}
			seen = true
		}
		right[i] = right[i] && seen
	}
	return right
}

func formatRow(row []string, widths []int, right []bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cellAt(row, i), widths[i], right[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// displayWidth is the terminal column count of value, ignoring color codes.
func displayWidth(value string) int {
	return runewidth.StringWidth(stripANSI(value))
}

func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b") {
		return value
	}
	return ansiSequence.ReplaceAllString(value, "")
}
