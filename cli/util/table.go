package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

/*
PrintTable renders rows under a header line with padded columns. When the
table is wider than the terminal, each row is printed as a record of
header/value lines instead:

	| kind | count |  min  |
	|------|-------|-------|
	| text | 3     | 1     |

	-[ RECORD 1 ]
	kind  | text
	count | 3
*/

////////////////////////////////////////////////////////////////////////////////

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h) + 2
	}
	for _, row := range rows {
		for i, col := range row {
			widths[i] = max(widths[i], len(col)+2)
		}
	}
	return widths
}

func tableWidth(widths []int) int {
	total := len(widths) + 1
	for _, w := range widths {
		total += w
	}
	return total
}

func printColumns(w io.Writer, headers []string, rows [][]string, widths []int) {
	fmt.Fprint(w, "|")
	for i, h := range headers {
		left := (widths[i] - len(h)) / 2
		fmt.Fprintf(w, "%s%s%s|", strings.Repeat(" ", left), h, strings.Repeat(" ", widths[i]-len(h)-left))
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, "|")
	for _, width := range widths {
		fmt.Fprintf(w, "%s|", strings.Repeat("-", width))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		fmt.Fprint(w, "|")
		for i, col := range row {
			fmt.Fprintf(w, " %-*s|", widths[i]-1, col)
		}
		fmt.Fprintln(w)
	}
}

func printRecords(w io.Writer, headers []string, rows [][]string) {
	keyWidth := 0
	for _, h := range headers {
		keyWidth = max(keyWidth, len(h))
	}
	for i, row := range rows {
		fmt.Fprintf(w, "-[ RECORD %d ]\n", i+1)
		for j, col := range row {
			fmt.Fprintf(w, "%-*s | %s\n", keyWidth, headers[j], col)
		}
	}
}

// PrintTable prints a table sized to the terminal.
func PrintTable(w io.Writer, headers []string, rows [][]string) {
	printTable(w, readline.GetScreenWidth(), headers, rows)
}

func printTable(w io.Writer, termWidth int, headers []string, rows [][]string) {
	widths := columnWidths(headers, rows)
	if termWidth > 0 && tableWidth(widths) > termWidth {
		printRecords(w, headers, rows)
		return
	}
	printColumns(w, headers, rows, widths)
}
