// Package export renders list collections as CSV files and optionally
// archives them to object storage.
package export

import (
	"bufio"
	"io"
	"strings"
)

// BOM makes spreadsheet applications detect UTF-8.
const BOM = "\uFEFF"

// Column is one CSV column of T.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Headers returns the header row of cols.
func Headers[T any](cols []Column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

// WriteCSV writes a BOM, a header row and one row per item. Every cell is
// quoted with embedded quotes doubled; rows end with CRLF.
func WriteCSV[T any](w io.Writer, cols []Column[T], items []T) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(BOM); err != nil {
		return err
	}
	if err := writeRow(bw, Headers(cols)); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, it := range items {
		for i, c := range cols {
			row[i] = c.Value(it)
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, cells []string) error {
	for i, cell := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(cell)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Filename returns the download name of a resource export taken on day
// (YYYY-MM-DD), e.g. "activity-logs-2024-05-01.csv".
func Filename(resource, day string) string {
	return resource + "-" + day + ".csv"
}
