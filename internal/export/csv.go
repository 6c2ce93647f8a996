// Package export encodes reading tables as CSV and delivers them to sinks.
package export

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

// FilePrefix names exported files: polyhouse_data_2024-01-31.csv.
const FilePrefix = "polyhouse_data"

// Header is the first row of every export.
var Header = []string{"S.No", "Temperature (°C)", "Timestamp"}

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data to export")

// Encode joins the header and rows with commas, one line per row. Cells are
// written verbatim: readings never contain commas, so nothing is quoted.
func Encode(header []string, rows [][]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(header, ","))
	buf.WriteByte('\n')
	for _, row := range rows {
		buf.WriteString(strings.Join(row, ","))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FileName returns prefix_YYYY-MM-DD.csv for the calendar date of now in
// its own location.
func FileName(prefix string, now time.Time) string {
	return prefix + "_" + now.Format("2006-01-02") + ".csv"
}
