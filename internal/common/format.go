package common

import (
	"fmt"
	"io"
	"strings"
)

// DefaultWidth is the separator width used by console output
const DefaultWidth = 80

// Field is one labelled line of console output
type Field struct {
	Label string
	Value string
}

// PrintSeparator writes a separator line with the specified character and width
func PrintSeparator(w io.Writer, char string, width int) {
	fmt.Fprintln(w, strings.Repeat(char, width))
}

// PrintHeader writes a formatted header with title and separators
func PrintHeader(w io.Writer, title string, width int) {
	fmt.Fprintln(w)
	PrintSeparator(w, "=", width)
	fmt.Fprintln(w, title)
	PrintSeparator(w, "=", width)
}

// PrintFields writes fields as a box-drawn list with aligned labels
func PrintFields(w io.Writer, fields []Field) {
	labelWidth := 0
	for _, f := range fields {
		if len(f.Label) > labelWidth {
			labelWidth = len(f.Label)
		}
	}
	for i, f := range fields {
		fmt.Fprintf(w, "%s%-*s  %s\n", BoxPrefix(i == len(fields)-1), labelWidth+1, f.Label+":", f.Value)
	}
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
