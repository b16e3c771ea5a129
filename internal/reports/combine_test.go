package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/domain"
)

func TestCombineSameDay(t *testing.T) {
	a := report("a", "2024-01-01 10:00", item(1, "A", 2, 10, 20))
	b := report("b", "2024-01-01 15:00", item(1, "A", 3, 10, 30))

	got := Combine(a, b)

	assert.Equal(t, "2024-01-01 15:00", got.Date)
	assert.Equal(t, domain.ReportTypeTemp, got.Type)
	assert.NotEmpty(t, got.ReportID)
	assert.NotEqual(t, a.ReportID, got.ReportID)
	require.Len(t, got.DailySales, 1)
	assert.Equal(t, 5, got.DailySales[0].Quantity)
	assert.True(t, got.DailySales[0].Total.Equal(decimal.NewFromInt(50)))
	assert.True(t, got.GrandTotal.Equal(decimal.NewFromInt(50)))
}

func TestCombineSameDayIsOrderIndependentForDate(t *testing.T) {
	a := report("a", "2024-01-01 10:00")
	b := report("b", "2024-01-01 15:00")
	assert.Equal(t, "2024-01-01 15:00", Combine(b, a).Date)
}

func TestCombineDifferentDays(t *testing.T) {
	a := report("a", "2024-01-01 10:00", item(1, "A", 1, 10, 10))
	b := report("b", "2024-01-02 09:00", item(2, "B", 2, 5, 10))

	got := Combine(a, b)
	assert.Equal(t, "Sum of 2024-01-01 10:00 and 2024-01-02 09:00", got.Date)
	require.Len(t, got.DailySales, 2)
	assert.Equal(t, 1, got.DailySales[0].ProductID)
	assert.Equal(t, 2, got.DailySales[1].ProductID)
	assert.True(t, got.GrandTotal.Equal(decimal.NewFromInt(20)))
}

func TestCombineKeepsFirstSeenPriceAndName(t *testing.T) {
	a := report("a", "2024-01-01", item(1, "Old name", 1, 10, 10))
	b := report("b", "2024-01-01", item(1, "New name", 2, 12, 24))

	got := Combine(a, b)
	require.Len(t, got.DailySales, 1)
	row := got.DailySales[0]
	assert.Equal(t, "Old name", row.ProductName)
	assert.True(t, row.Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 3, row.Quantity)
	assert.True(t, row.Total.Equal(decimal.NewFromInt(34)))
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	a := report("a", "2024-01-01", item(1, "A", 1, 10, 10))
	b := report("b", "2024-01-01", item(1, "A", 2, 10, 20))

	_ = Combine(a, b)
	assert.Equal(t, 1, a.DailySales[0].Quantity)
	assert.True(t, a.DailySales[0].Total.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.ReportTypeDaily, a.Type)
}

func TestCombineEmptyReports(t *testing.T) {
	got := Combine(report("a", "2024-01-01"), report("b", "2024-01-01"))
	assert.NotNil(t, got.DailySales)
	assert.Empty(t, got.DailySales)
	assert.True(t, got.GrandTotal.IsZero())
}

func TestDatePart(t *testing.T) {
	assert.Equal(t, "2024-01-01", datePart("2024-01-01 10:00"))
	assert.Equal(t, "2024-01-01", datePart("2024-01-01"))
	assert.Equal(t, "Sum", datePart("Sum of a and b"))
}
