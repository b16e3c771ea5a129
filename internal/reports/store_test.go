package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/store/memory"
)

// flakyKV fails writes on demand.
type flakyKV struct {
	*memory.Store
	failSet bool
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func item(id int, name string, qty int, price, total int64) domain.SummaryItem {
	return domain.SummaryItem{
		ProductID:   id,
		ProductName: name,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
		Total:       decimal.NewFromInt(total),
	}
}

func report(id, date string, items ...domain.SummaryItem) domain.Report {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	if items == nil {
		items = []domain.SummaryItem{}
	}
	return domain.Report{ReportID: id, DailySales: items, GrandTotal: total, Type: domain.ReportTypeDaily, Date: date}
}

func newStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	kv := memory.New()
	s := New(kv, nil)
	s.Load(context.Background())
	return s, kv
}

func persisted(t *testing.T, kv *memory.Store) []domain.Report {
	t.Helper()
	raw, err := kv.Get(context.Background(), domain.KeyReports)
	require.NoError(t, err)
	var out []domain.Report
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSaveReplacesReportWithSameDate(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01 10:00:00", item(1, "A", 1, 10, 10))))
	require.NoError(t, s.Save(ctx, report("r2", "2024-01-02 10:00:00")))
	require.NoError(t, s.Save(ctx, report("r3", "2024-01-01 10:00:00", item(2, "B", 2, 5, 10))))

	got := s.Reports()
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ReportID)
	assert.Equal(t, "r3", got[1].ReportID)
	assert.Equal(t, []string{"r2", "r3"}, ids(persisted(t, kv)))
}

func TestSaveSortsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	for _, r := range []domain.Report{
		report("a", "2024-01-02"),
		report("b", "2024-03-01 08:00"),
		report("c", "2024-02-10T09:00:00Z"),
		report("d", "not a date"),
		report("e", "2024-03-01 09:30:00"),
	} {
		require.NoError(t, s.Save(ctx, r))
	}
	assert.Equal(t, []string{"e", "b", "c", "a", "d"}, ids(s.Reports()))
}

func TestSaveStoresTempReportAsDaily(t *testing.T) {
	s, _ := newStore(t)
	r := report("r1", "2024-01-01")
	r.Type = domain.ReportTypeTemp
	require.NoError(t, s.Save(context.Background(), r))
	assert.Equal(t, domain.ReportTypeDaily, s.Reports()[0].Type)
}

func TestSaveFailureLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: memory.New()}
	s := New(kv, nil)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))

	kv.failSet = true
	err := s.Save(ctx, report("r2", "2024-01-01"))
	require.Error(t, err)
	assert.Equal(t, []string{"r1"}, ids(s.Reports()))

	err = s.Delete(ctx, domain.ReportRef{ReportID: "r1"}, true)
	require.Error(t, err)
	assert.Len(t, s.Reports(), 1)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))

	err := s.Delete(ctx, domain.ReportRef{ReportID: "r1"}, false)
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)
	assert.Len(t, s.Reports(), 1)

	require.NoError(t, s.Delete(ctx, domain.ReportRef{ReportID: "r1"}, true))
	assert.Empty(t, s.Reports())
	assert.Empty(t, persisted(t, kv))

	err = s.Delete(ctx, domain.ReportRef{ReportID: "r1"}, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTempSkipsConfirmationAndStorage(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))
	temp := s.AddTemp(report("t1", "2024-01-01"))

	require.NoError(t, s.Delete(ctx, domain.ReportRef{ReportID: temp.ReportID, TempID: temp.TempID}, false))
	assert.Empty(t, s.TempReports())
	assert.Len(t, persisted(t, kv), 1)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))
	s.AddTemp(report("t1", "2024-01-01"))

	assert.ErrorIs(t, s.Clear(ctx, false), domain.ErrConfirmationRequired)
	require.NoError(t, s.Clear(ctx, true))
	assert.Empty(t, s.Reports())
	assert.Empty(t, persisted(t, kv))
	assert.Len(t, s.TempReports(), 1)

	s.ClearTemp()
	assert.Empty(t, s.TempReports())
}

func TestLoadRecoversFromCorruptData(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, domain.KeyReports, []byte(`[{"reportId":`)))

	s := New(kv, nil)
	s.Load(ctx)
	assert.True(t, s.LoadFailed())
	assert.Empty(t, s.Reports())

	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))
	assert.False(t, s.LoadFailed())
}

func TestLoadReadsPersistedReports(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01", item(1, "A", 2, 10, 20))))

	reloaded := New(kv, nil)
	reloaded.Load(ctx)
	assert.False(t, reloaded.LoadFailed())
	got := reloaded.Reports()
	require.Len(t, got, 1)
	assert.True(t, got[0].GrandTotal.Equal(decimal.NewFromInt(20)))
}

func TestTempReportsAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	s.AddTemp(report("t1", "2024-01-01"))

	reloaded := New(kv, nil)
	reloaded.Load(ctx)
	assert.Empty(t, reloaded.TempReports())
	_, err := kv.Get(ctx, domain.KeyReports)
	assert.Error(t, err)
}

func TestRemoveTempUnknown(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.RemoveTemp("nope"), domain.ErrNotFound)
}

func TestReportsReturnsCopies(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Save(context.Background(), report("r1", "2024-01-01", item(1, "A", 1, 10, 10))))

	got := s.Reports()
	got[0].DailySales[0].Quantity = 99
	assert.Equal(t, 1, s.Reports()[0].DailySales[0].Quantity)
}

func TestCombineByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01 10:00", item(1, "A", 2, 10, 20))))
	temp := s.AddTemp(report("t1", "2024-01-01 15:00", item(1, "A", 3, 10, 30)))

	combined, err := s.CombineByID("r1", temp.TempID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportTypeTemp, combined.Type)
	assert.Equal(t, "2024-01-01 15:00", combined.Date)
	assert.True(t, combined.GrandTotal.Equal(decimal.NewFromInt(50)))
	assert.Len(t, s.TempReports(), 2)

	_, err = s.CombineByID("r1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportIsIdempotentByReportID(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	file, err := backup.Encode(backup.KindReports, report("r9", "2024-02-01", item(1, "A", 1, 10, 10)), time.Now())
	require.NoError(t, err)

	res, err := s.Import(ctx, file.Content)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	res, err = s.Import(ctx, file.Content)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	assert.Equal(t, []string{"r9"}, ids(persisted(t, kv)))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newStore(t)
	original := report("r1", "2024-01-01 10:00:00", item(1, "A", 2, 10, 20), item(2, "B", 1, 5, 5))
	require.NoError(t, src.Save(ctx, original))

	file, err := src.Export("r1", time.Now())
	require.NoError(t, err)

	dst, _ := newStore(t)
	_, err = dst.Import(ctx, file.Content)
	require.NoError(t, err)

	got := dst.Reports()
	require.Len(t, got, 1)
	assert.Equal(t, original.ReportID, got[0].ReportID)
	assert.Equal(t, original.Date, got[0].Date)
	require.Len(t, got[0].DailySales, 2)
	assert.True(t, got[0].GrandTotal.Equal(original.GrandTotal))
}

func TestImportRejectsReportWithItemMissingPrice(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))
	before, err := kv.Get(ctx, domain.KeyReports)
	require.NoError(t, err)

	content := []byte(`{
		"exportType": "reports_backup",
		"exportedAt": "2024-01-03T00:00:00Z",
		"key": "reports_data",
		"data": {
			"reportId": "r2",
			"dailySales": [
				{"productId": 1, "productName": "A", "quantity": 1, "price": 10, "total": 10},
				{"productId": 2, "productName": "B", "quantity": 1, "total": 5}
			],
			"grandTotal": 15,
			"type": "daily",
			"date": "2024-01-02"
		}
	}`)
	_, err = s.Import(ctx, content)
	assert.ErrorIs(t, err, domain.ErrValidation)

	after, err := kv.Get(ctx, domain.KeyReports)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, s.Reports(), 1)
}

func TestSaveRecomputesGrandTotal(t *testing.T) {
	s, kv := newStore(t)
	r := report("r1", "2024-01-01", item(1, "A", 1, 10, 10))
	r.GrandTotal = decimal.NewFromInt(999)
	require.NoError(t, s.Save(context.Background(), r))

	assert.True(t, s.Reports()[0].GrandTotal.Equal(decimal.NewFromInt(10)))
	assert.True(t, persisted(t, kv)[0].GrandTotal.Equal(decimal.NewFromInt(10)))
}

func TestImportRecomputesGrandTotal(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	content := []byte(`{
		"exportType": "reports_backup",
		"exportedAt": "2024-01-03T00:00:00Z",
		"key": "reports_data",
		"data": {
			"reportId": "r9",
			"dailySales": [
				{"productId": 1, "productName": "A", "quantity": 1, "price": 10, "total": 10}
			],
			"grandTotal": 999,
			"type": "daily",
			"date": "2024-01-02"
		}
	}`)
	p, err := s.ProposeImport(content)
	require.NoError(t, err)
	assert.Contains(t, p.Description, "total 10.00")

	_, err = s.CommitImport(ctx, p)
	require.NoError(t, err)
	got := s.Reports()
	require.Len(t, got, 1)
	assert.True(t, got[0].GrandTotal.Equal(decimal.NewFromInt(10)))
	assert.True(t, persisted(t, kv)[0].GrandTotal.Equal(decimal.NewFromInt(10)))
}

func TestImportKeepsExistingReportWithSameDate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01 10:00")))

	file, err := backup.Encode(backup.KindReports, report("r2", "2024-01-01 10:00"), time.Now())
	require.NoError(t, err)
	res, err := s.Import(ctx, file.Content)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids(s.Reports()))
}

func TestImportRejectsProductsEnvelope(t *testing.T) {
	s, _ := newStore(t)
	file, err := backup.Encode(backup.KindProducts, []domain.Product{}, time.Now())
	require.NoError(t, err)

	_, err = s.ProposeImport(file.Content)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProposeImportDescribesDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Save(ctx, report("r1", "2024-01-01")))

	file, err := s.Export("r1", time.Now())
	require.NoError(t, err)
	p, err := s.ProposeImport(file.Content)
	require.NoError(t, err)
	assert.True(t, p.Duplicate)
	assert.NotEmpty(t, p.ID)
}

func TestImportedTempReportIsStoredAsDaily(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	temp := s.AddTemp(report("t1", "2024-01-05"))

	file, err := s.Export(temp.TempID, time.Now())
	require.NoError(t, err)
	_, err = s.Import(ctx, file.Content)
	require.NoError(t, err)

	got := s.Reports()
	require.Len(t, got, 1)
	assert.Equal(t, domain.ReportTypeDaily, got[0].Type)
}

func ids(reports []domain.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ReportID
	}
	return out
}
