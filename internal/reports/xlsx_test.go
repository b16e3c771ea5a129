package reports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	r := report("r1", "2024-01-01 10:00:00", item(1, "Sardinas", 2, 700, 1400), item(2, "Pasta tomate", 1, 440, 440))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cell := func(axis string) string {
		v, err := f.GetCellValue(xlsxSheet, axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "2024-01-01 10:00:00", cell("B1"))
	assert.Equal(t, "Product", cell("B2"))
	assert.Equal(t, "Sardinas", cell("B3"))
	assert.Equal(t, "2", cell("C3"))
	assert.Equal(t, "Pasta tomate", cell("B4"))
	assert.Equal(t, "Grand total", cell("D5"))
	assert.Equal(t, "1840", cell("E5"))
	assert.Equal(t, "report_r1.xlsx", XLSXFileName(r))
}
