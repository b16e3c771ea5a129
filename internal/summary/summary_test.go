package summary

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/domain"
)

func sale(productID int, name string, qty int, unit int64) domain.SaleRecord {
	price := decimal.NewFromInt(unit)
	return domain.SaleRecord{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   price,
		Subtotal:    price.Mul(decimal.NewFromInt(int64(qty))),
		Timestamp:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeMergesSameProduct(t *testing.T) {
	items, total := Summarize([]domain.SaleRecord{
		sale(1, "A", 2, 10),
		sale(1, "A", 3, 10),
	})

	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ProductID)
	assert.Equal(t, "A", items[0].ProductName)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, items[0].Total.Equal(decimal.NewFromInt(50)))
	assert.True(t, total.Equal(decimal.NewFromInt(50)))
}

func TestSummarizeEmpty(t *testing.T) {
	items, total := Summarize(nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.True(t, total.IsZero())
}

func TestSummarizeKeepsFirstSeenPrice(t *testing.T) {
	items, total := Summarize([]domain.SaleRecord{
		sale(7, "Sardinas", 1, 700),
		sale(2, "Arina", 2, 650),
		sale(7, "Sardinas (new)", 1, 750),
	})

	require.Len(t, items, 2)
	assert.Equal(t, 7, items[0].ProductID, "rows keep first-seen order")
	assert.Equal(t, "Sardinas", items[0].ProductName)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(700)))
	assert.True(t, items[0].Total.Equal(decimal.NewFromInt(1450)))
	assert.True(t, total.Equal(decimal.NewFromInt(2750)))
}

func TestBuildReport(t *testing.T) {
	report := BuildReport("r-1", "2024-01-01 18:00:00", []domain.SaleRecord{sale(1, "A", 2, 10)})
	assert.Equal(t, domain.ReportTypeDaily, report.Type)
	assert.Equal(t, "2024-01-01 18:00:00", report.Date)
	assert.True(t, report.GrandTotal.Equal(decimal.NewFromInt(20)))
}
