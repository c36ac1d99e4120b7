package render

import (
	"fmt"
	"io"
	"strings"
)

// Table writes rows under a header, each column as wide as its widest cell
// but never wider than maxWidth. A maxWidth of zero disables truncation.
func Table(w io.Writer, header []string, rows [][]string, maxWidth int) error {
	widths := make([]int, len(header))
	cell := func(s string) string {
		s = Sanitize(s)
		if maxWidth > 0 {
			s = Truncate(s, maxWidth)
		}
		return s
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, make([]string, len(header)))
	for i, h := range header {
		cells[0][i] = cell(h)
	}
	for _, row := range rows {
		line := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				line[i] = cell(row[i])
			}
		}
		cells = append(cells, line)
	}
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], Width(c))
		}
	}

	for n, line := range cells {
		if err := writeLine(w, line, widths); err != nil {
			return err
		}
		if n == 0 {
			sep := make([]string, len(widths))
			for i, width := range widths {
				sep[i] = strings.Repeat("─", width)
			}
			if err := writeLine(w, sep, widths); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLine(w io.Writer, line []string, widths []int) error {
	var b strings.Builder
	for i, c := range line {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == len(line)-1 {
			b.WriteString(c)
		} else {
			b.WriteString(Pad(c, widths[i]))
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	return err
}
