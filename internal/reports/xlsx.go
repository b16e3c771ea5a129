package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"quicksale/backend/internal/domain"
)

const (
	xlsxSheet       = "Sheet1"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// XLSXFileName names the spreadsheet export of a report.
func XLSXFileName(report domain.Report) string {
	return fmt.Sprintf("report_%s.xlsx", report.ReportID)
}

// WriteXLSX renders one report as a spreadsheet: a title row, a header row,
// one row per product and a closing grand total row.
func WriteXLSX(w io.Writer, report domain.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	cells := map[string]any{
		"A1": "Report",
		"B1": report.Date,
		"A2": "Product ID",
		"B2": "Product",
		"C2": "Quantity",
		"D2": "Price",
		"E2": "Total",
	}
	for cell, value := range cells {
		if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
			return err
		}
	}

	row := 3
	for _, item := range report.DailySales {
		values := []any{
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price.InexactFloat64(),
			item.Total.InexactFloat64(),
		}
		if err := f.SetSheetRow(xlsxSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("D%d", row), "Grand total"); err != nil {
		return err
	}
	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("E%d", row), report.GrandTotal.InexactFloat64()); err != nil {
		return err
	}

	return f.Write(w)
}
