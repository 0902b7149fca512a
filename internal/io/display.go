package io

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/paveg/polecat/internal/dataframe"
)

const ellipsis = "…"

// Show renders df as text through sink: a shape line followed by a table
// whose header carries each column's name and type.
func Show(df *dataframe.DataFrame, sink Sink, opts DisplayOptions) error {
	w := NewSinkWriter(sink, opts.ChunkSize).Instrument(opts.Metrics, "show")
	return Render(w, df, opts)
}

// Render writes the display form of df to w
func Render(w io.Writer, df *dataframe.DataFrame, opts DisplayOptions) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "shape: (%d, %d)\n", df.Len(), df.Width())

	if df.Width() > 0 {
		table := tablewriter.NewWriter(&buf)
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

		cols := df.Series()
		header := make([]string, len(cols))
		for i, s := range cols {
			header[i] = s.Name() + "\n---\n" + s.Type().String()
		}
		table.SetHeader(header)

		for _, row := range displayRows(df.Len(), opts.MaxRows) {
			cells := make([]string, len(cols))
			for i, s := range cols {
				if row < 0 {
					cells[i] = ellipsis
					continue
				}
				cells[i] = truncateCell(s.GetAsString(row), opts.MaxColWidth)
			}
			table.Append(cells)
		}
		table.Render()
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// displayRows picks the rows to print. When n exceeds limit the head and
// tail are kept and -1 marks the elided middle.
func displayRows(n, limit int) []int {
	if limit <= 0 || n <= limit {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	head := (limit + 1) / 2
	tail := limit - head
	rows := make([]int, 0, limit+1)
	for i := 0; i < head; i++ {
		rows = append(rows, i)
	}
	rows = append(rows, -1)
	for i := n - tail; i < n; i++ {
		rows = append(rows, i)
	}
	return rows
}

func truncateCell(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + ellipsis
}
