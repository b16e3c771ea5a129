// Package summary reduces finalized sale records into per-product rows.
//
// Rows are keyed by product id in first-seen order. The first sale of a
// product fixes the row's name and unit price; later sales only add to
// quantity and total. A price change during the day therefore shows up in
// Total but not in Price, and Total may differ from Price × Quantity.
package summary

import (
	"github.com/shopspring/decimal"

	"quicksale/backend/internal/domain"
)

func Summarize(sales []domain.SaleRecord) ([]domain.SummaryItem, decimal.Decimal) {
	items := make([]domain.SummaryItem, 0, len(sales))
	index := make(map[int]int, len(sales))

	for _, sale := range sales {
		if i, ok := index[sale.ProductID]; ok {
			items[i].Quantity += sale.Quantity
			items[i].Total = items[i].Total.Add(sale.Subtotal)
			continue
		}
		index[sale.ProductID] = len(items)
		items = append(items, domain.SummaryItem{
			ProductID:   sale.ProductID,
			ProductName: sale.ProductName,
			Quantity:    sale.Quantity,
			Price:       sale.UnitPrice,
			Total:       sale.Subtotal,
		})
	}

	return items, GrandTotal(items)
}

func GrandTotal(items []domain.SummaryItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}

// BuildReport summarizes sales into a daily report labelled with date.
func BuildReport(reportID string, date string, sales []domain.SaleRecord) domain.Report {
	items, total := Summarize(sales)
	return domain.Report{
		ReportID:   reportID,
		DailySales: items,
		GrandTotal: total,
		Type:       domain.ReportTypeDaily,
		Date:       date,
	}
}
