package reports

import (
	"fmt"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/summary"
	"quicksale/backend/internal/xid"
)

// Combine merges two reports into a new temp report. Inputs are not modified.
//
// Reports from the same calendar day keep the later of the two labels; reports
// from different days get a "Sum of <a> and <b>" label. Rows are merged by
// product id, a's rows first. As in summary.Summarize, a merged row keeps the
// name and price of the side seen first and only accumulates quantity and
// total, so Price is display data and not authoritative when the inputs
// disagree.
func Combine(a, b domain.Report) domain.Report {
	items := mergeItems(a.DailySales, b.DailySales)
	return domain.Report{
		ReportID:   xid.New(""),
		DailySales: items,
		GrandTotal: summary.GrandTotal(items),
		Type:       domain.ReportTypeTemp,
		Date:       combinedDate(a.Date, b.Date),
	}
}

func combinedDate(a, b string) string {
	if datePart(a) == datePart(b) {
		if a > b {
			return a
		}
		return b
	}
	return fmt.Sprintf("Sum of %s and %s", a, b)
}

func mergeItems(a, b []domain.SummaryItem) []domain.SummaryItem {
	merged := make([]domain.SummaryItem, 0, len(a)+len(b))
	index := make(map[int]int, len(a)+len(b))
	for _, items := range [][]domain.SummaryItem{a, b} {
		for _, item := range items {
			if i, ok := index[item.ProductID]; ok {
				merged[i].Quantity += item.Quantity
				merged[i].Total = merged[i].Total.Add(item.Total)
				continue
			}
			index[item.ProductID] = len(merged)
			merged = append(merged, item)
		}
	}
	return merged
}
