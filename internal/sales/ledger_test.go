package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/reports"
	"quicksale/backend/internal/store/memory"
)

var (
	sardinas = domain.Product{ID: 1, Name: "Sardinas", SKU: "sar", Price: decimal.NewFromInt(700), Stock: 10}
	pasta    = domain.Product{ID: 3, Name: "Pasta tomate", SKU: "patt", Price: decimal.NewFromInt(440), Stock: 30}
)

func clock() func() time.Time {
	t := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

type failingSaver struct{}

func (failingSaver) Save(context.Context, domain.Report) error { return errors.New("storage offline") }

func TestAddPendingMergesSameProduct(t *testing.T) {
	l := NewLedger(clock())
	require.NoError(t, l.AddPending(sardinas, 2))
	require.NoError(t, l.AddPending(pasta, 1))
	require.NoError(t, l.AddPending(sardinas, 3))

	pending := l.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, 5, pending[0].Quantity)
	assert.True(t, pending[0].Subtotal.Equal(decimal.NewFromInt(3500)))
	assert.True(t, l.PendingTotal().Equal(decimal.NewFromInt(3940)))
}

func TestAddPendingRejectsZeroQuantity(t *testing.T) {
	l := NewLedger(clock())
	assert.ErrorIs(t, l.AddPending(sardinas, 0), domain.ErrInvalidInput)
	assert.Empty(t, l.Pending())
}

func TestIncreaseDecreasePending(t *testing.T) {
	l := NewLedger(clock())
	require.NoError(t, l.AddPending(pasta, 1))

	require.NoError(t, l.IncreasePending(0))
	assert.Equal(t, 2, l.Pending()[0].Quantity)
	assert.True(t, l.Pending()[0].Subtotal.Equal(decimal.NewFromInt(880)))

	require.NoError(t, l.DecreasePending(0))
	require.NoError(t, l.DecreasePending(0))
	line := l.Pending()[0]
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.Subtotal.Equal(decimal.NewFromInt(440)))

	assert.ErrorIs(t, l.IncreasePending(5), domain.ErrNotFound)
	assert.ErrorIs(t, l.DecreasePending(-1), domain.ErrNotFound)
}

func TestRemoveAndClearPending(t *testing.T) {
	l := NewLedger(clock())
	require.NoError(t, l.AddPending(sardinas, 1))
	require.NoError(t, l.AddPending(pasta, 1))

	require.NoError(t, l.RemovePending(0))
	require.Len(t, l.Pending(), 1)
	assert.Equal(t, pasta.ID, l.Pending()[0].ProductID)

	l.ClearPending()
	assert.Empty(t, l.Pending())
	assert.ErrorIs(t, l.RemovePending(0), domain.ErrNotFound)
}

func TestFinalize(t *testing.T) {
	l := NewLedger(clock())
	assert.False(t, l.Finalize())

	require.NoError(t, l.AddPending(sardinas, 2))
	require.NoError(t, l.AddPending(pasta, 1))
	assert.True(t, l.Finalize())
	assert.Empty(t, l.Pending())

	daily := l.DailySales()
	require.Len(t, daily, 2)
	assert.NotEqual(t, daily[0].ID, daily[1].ID)

	require.NoError(t, l.AddPending(sardinas, 3))
	assert.True(t, l.Finalize())

	items, total := l.Summary()
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, total.Equal(decimal.NewFromInt(3940)))

	l.ClearDaily()
	assert.Empty(t, l.DailySales())
}

func TestCloseDaySavesReport(t *testing.T) {
	ctx := context.Background()
	store := reports.New(memory.New(), nil)
	l := NewLedger(clock())

	_, err := l.CloseDay(ctx, store)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, l.AddPending(sardinas, 2))
	require.True(t, l.Finalize())

	report, err := l.CloseDay(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 18:00:00", report.Date)
	assert.Equal(t, domain.ReportTypeDaily, report.Type)
	assert.True(t, report.GrandTotal.Equal(decimal.NewFromInt(1400)))
	assert.Empty(t, l.DailySales())

	saved := store.Reports()
	require.Len(t, saved, 1)
	assert.Equal(t, report.ReportID, saved[0].ReportID)
}

func TestCloseDayKeepsSalesWhenSaveFails(t *testing.T) {
	l := NewLedger(clock())
	require.NoError(t, l.AddPending(sardinas, 1))
	require.True(t, l.Finalize())

	_, err := l.CloseDay(context.Background(), failingSaver{})
	require.Error(t, err)
	assert.Len(t, l.DailySales(), 1)
}
