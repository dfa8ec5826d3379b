// Package export writes tabular reports as CSV or XLSX downloads.
package export

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Content types of the supported formats.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Table is a header row plus data rows. Cells may be strings, integers,
// decimals, times or nil.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Attachment sets the download headers for filename.
func Attachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

const timeLayout = "2006-01-02 15:04"

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case decimal.Decimal:
		return c.String()
	case *decimal.Decimal:
		if c == nil {
			return ""
		}
		return c.String()
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c.Format(timeLayout)
	case *time.Time:
		if c == nil || c.IsZero() {
			return ""
		}
		return c.Format(timeLayout)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		if c {
			return "yes"
		}
		return "no"
	case fmt.Stringer:
		return c.String()
	}
	return fmt.Sprint(v)
}
