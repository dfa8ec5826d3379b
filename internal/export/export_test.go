package export

import (
	"bytes"
	"encoding/csv"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	t := Table{Sheet: "Aging", Headers: []string{"Supplier", "Balance", "Updated", "Active"}}
	t.AddRow("Vivo Energy", decimal.RequireFromString("125000.50"), time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC), true)
	t.AddRow("Rubis", decimal.Zero, nil, false)
	return t
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, sampleTable()))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Supplier", "Balance", "Updated", "Active"}, records[0])
	assert.Equal(t, []string{"Vivo Energy", "125000.5", "2026-05-04 09:30", "yes"}, records[1])
	assert.Equal(t, []string{"Rubis", "0", "", "no"}, records[2])
}

func TestWriteXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteXLSX(buf, sampleTable()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Aging"}, f.GetSheetList())
	rows, err := f.GetRows("Aging")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Supplier", rows[0][0])
	assert.Equal(t, "Vivo Energy", rows[1][0])

	v, err := f.GetCellValue("Aging", "B2")
	require.NoError(t, err)
	assert.Equal(t, "125000.5", v)
}

func TestAttachmentHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "activity.csv", ContentTypeCSV)
	assert.Equal(t, ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="activity.csv"`, rec.Header().Get("Content-Disposition"))
}
