package cli

import (
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// colGap is the space between columns.
const colGap = 2

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Table renders column-aligned output. Headers and a dash divider are
// written on Flush, and only when at least one row was added, so empty
// tables produce no output. On a terminal, wide columns wrap to fit.
type Table struct {
	out     io.Writer
	headers []string
	rows    [][]string
	prefix  string
	width   int // 0 means unbounded
}

// NewTable creates a table on stdout with the given column headers.
func NewTable(headers ...string) *Table {
	return NewTableTo(os.Stdout, headers...)
}

// NewTableTo creates a table writing to w.
func NewTableTo(w io.Writer, headers ...string) *Table {
	return &Table{out: w, headers: headers, width: terminalWidth(w)}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// Row adds a row. Missing trailing cells render empty.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush writes the table. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := visualLen(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	if t.width > 0 {
		widths = capWidths(widths, t.headers, t.width, visualLen(t.prefix))
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", visualLen(h))
	}
	t.writeRow(t.headers, widths)
	t.writeRow(dividers, widths)
	for _, row := range t.rows {
		t.writeRow(row, widths)
	}
	t.rows = nil
}

// writeRow writes one logical row, spreading wrapped cells over as many
// physical lines as the tallest cell needs.
func (t *Table) writeRow(row []string, widths []int) {
	cells := make([][]string, len(widths))
	height := 1
	for i := range widths {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		cells[i] = wrapCell(v, widths[i])
		if len(cells[i]) > height {
			height = len(cells[i])
		}
	}

	var sb strings.Builder
	for line := 0; line < height; line++ {
		sb.WriteString(t.prefix)
		for i, w := range widths {
			part := ""
			if line < len(cells[i]) {
				part = cells[i][line]
			}
			sb.WriteString(part)
			if i < len(widths)-1 {
				sb.WriteString(strings.Repeat(" ", w-visualLen(part)+colGap))
			}
		}
		io.WriteString(t.out, strings.TrimRight(sb.String(), " ")+"\n")
		sb.Reset()
	}
}

// visualLen is the printed width of s, ignoring ANSI color codes.
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiRe.ReplaceAllString(s, ""))
}

// capWidths narrows the widest columns until the table fits termWidth. No
// column goes below its header width.
func capWidths(widths []int, headers []string, termWidth, prefix int) []int {
	out := append([]int(nil), widths...)
	for {
		total := prefix + colGap*(len(out)-1)
		for _, w := range out {
			total += w
		}
		excess := total - termWidth
		if excess <= 0 {
			return out
		}

		widest := -1
		for i, w := range out {
			if w > visualLen(headers[i]) && (widest < 0 || w > out[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			return out
		}
		room := out[widest] - visualLen(headers[widest])
		if excess > room {
			excess = room
		}
		out[widest] -= excess
	}
}

// wrapCell splits s into lines of at most width runes, breaking at spaces
// and hard-breaking longer words. A cell that fits is returned unchanged,
// color codes included; wrapped cells lose their color.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}

	var lines []string
	cur := ""
	for _, word := range strings.Fields(ansiRe.ReplaceAllString(s, "")) {
		for utf8.RuneCountInString(word) > width {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		switch {
		case word == "":
		case cur == "":
			cur = word
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}
