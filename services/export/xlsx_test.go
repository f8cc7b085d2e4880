package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/beasiswa/core"
)

func TestXLSX(t *testing.T) {
	sheet := core.Sheet{Name: "Tickets", Header: []string{"TicketNumber", "User", "Status"}}
	sheet.Append("20240105007", "Ani", "Open")
	sheet.Append("20240106008", "Budi", "In Progress")

	data, err := XLSX(sheet)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Tickets"}, f.GetSheetList())
	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"TicketNumber", "User", "Status"},
		{"20240105007", "Ani", "Open"},
		{"20240106008", "Budi", "In Progress"},
	}, rows)
}

func TestXLSX_NoHeader(t *testing.T) {
	data, err := XLSX(core.Sheet{Rows: [][]interface{}{{"a", 1}}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1"}}, rows)
}
