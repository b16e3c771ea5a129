// Package sales tracks the quick-sale panel: pending lines being rung up and
// the day's finalized sales. State lives in memory only.
package sales

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/summary"
	"quicksale/backend/internal/xid"
)

// ReportSaver persists a closed day. *reports.Store satisfies it.
type ReportSaver interface {
	Save(ctx context.Context, report domain.Report) error
}

// PendingSale is a line not yet finalized. UnitPrice is the product price at
// the time the line was first added.
type PendingSale = domain.SaleRecord

type Ledger struct {
	mu      sync.Mutex
	now     func() time.Time
	lastID  int64
	pending []PendingSale
	daily   []domain.SaleRecord
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now, pending: []PendingSale{}, daily: []domain.SaleRecord{}}
}

// AddPending rings up qty units of product. A product already pending gets
// its line extended instead of a new line.
func (l *Ledger) AddPending(product domain.Product, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	subtotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.pending {
		if l.pending[i].ProductID == product.ID {
			l.pending[i].Quantity += qty
			l.pending[i].Subtotal = l.pending[i].Subtotal.Add(subtotal)
			return nil
		}
	}
	l.pending = append(l.pending, PendingSale{
		ID:          l.nextIDLocked(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    qty,
		UnitPrice:   product.Price,
		Subtotal:    subtotal,
		Timestamp:   l.now(),
	})
	return nil
}

func (l *Ledger) RemovePending(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkIndexLocked(index); err != nil {
		return err
	}
	l.pending = append(l.pending[:index:index], l.pending[index+1:]...)
	return nil
}

func (l *Ledger) IncreasePending(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkIndexLocked(index); err != nil {
		return err
	}
	line := &l.pending[index]
	line.Quantity++
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return nil
}

// DecreasePending removes one unit. A line at one unit stays as is.
func (l *Ledger) DecreasePending(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkIndexLocked(index); err != nil {
		return err
	}
	line := &l.pending[index]
	if line.Quantity <= 1 {
		return nil
	}
	line.Quantity--
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return nil
}

func (l *Ledger) ClearPending() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = []PendingSale{}
}

func (l *Ledger) Pending() []PendingSale {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]PendingSale{}, l.pending...)
}

// PendingTotal is the sum of the pending subtotals.
func (l *Ledger) PendingTotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, line := range l.pending {
		total = total.Add(line.Subtotal)
	}
	return total
}

// Finalize moves the pending lines into the day's sales with fresh ids and
// timestamps. It returns false when nothing is pending.
func (l *Ledger) Finalize() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return false
	}
	at := l.now()
	for _, line := range l.pending {
		line.ID = l.nextIDLocked()
		line.Timestamp = at
		l.daily = append(l.daily, line)
	}
	l.pending = []PendingSale{}
	return true
}

func (l *Ledger) DailySales() []domain.SaleRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.SaleRecord{}, l.daily...)
}

func (l *Ledger) ClearDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.daily = []domain.SaleRecord{}
}

// Summary aggregates the day's sales so far.
func (l *Ledger) Summary() ([]domain.SummaryItem, decimal.Decimal) {
	return summary.Summarize(l.DailySales())
}

// CloseDay turns the day's sales into a daily report, saves it through saver
// and clears the day on success. A report saved for the same timestamp label
// replaces the earlier one.
func (l *Ledger) CloseDay(ctx context.Context, saver ReportSaver) (domain.Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.daily) == 0 {
		return domain.Report{}, fmt.Errorf("%w: no sales to close", domain.ErrInvalidInput)
	}
	report := summary.BuildReport(xid.New(""), l.now().Format(domain.ReportDateLayout), l.daily)
	if err := saver.Save(ctx, report); err != nil {
		return domain.Report{}, err
	}
	l.daily = []domain.SaleRecord{}
	return report, nil
}

func (l *Ledger) checkIndexLocked(index int) error {
	if index < 0 || index >= len(l.pending) {
		return fmt.Errorf("pending line %d: %w", index, domain.ErrNotFound)
	}
	return nil
}

func (l *Ledger) nextIDLocked() int64 {
	id := l.now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}
