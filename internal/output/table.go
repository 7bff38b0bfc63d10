package output

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table collects rows for aligned text output.
type Table struct {
	headers  []string
	rows     [][]string
	noHeader bool
	bordered bool
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row. Short rows are padded with empty cells.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// SetNoHeader suppresses the header row.
func (t *Table) SetNoHeader(noHeader bool) {
	t.noHeader = noHeader
}

// SetBordered draws ASCII borders around cells.
func (t *Table) SetBordered(bordered bool) {
	t.bordered = bordered
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	cw := &stickyWriter{w: w}
	tw := tablewriter.NewWriter(cw)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	if !t.bordered {
		tw.SetBorder(false)
		tw.SetCenterSeparator("")
		tw.SetColumnSeparator("")
		tw.SetRowSeparator("-")
		tw.SetHeaderLine(true)
		tw.SetTablePadding("  ")
	}

	width := t.columns()
	if !t.noHeader && len(t.headers) > 0 {
		tw.SetHeader(pad(t.headers, width))
	}
	for _, row := range t.rows {
		tw.Append(pad(row, width))
	}
	tw.Render()

	return cw.err
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) columns() int {
	n := len(t.headers)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	return n
}

func pad(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}

// stickyWriter keeps the first write error, since tablewriter drops them.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (c *stickyWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	if err != nil {
		c.err = err
	}
	return n, err
}
