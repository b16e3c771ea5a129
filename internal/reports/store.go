package reports

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/logging"
	"quicksale/backend/internal/store"
	"quicksale/backend/internal/summary"
	"quicksale/backend/internal/xid"
)

// Store owns the durable reports collection, persisted as one blob under
// reports_data, and the temp reports of the running process. Every write
// persists the full next collection first and swaps it in only on success.
type Store struct {
	mu         sync.Mutex
	kv         store.KV
	logger     logrus.FieldLogger
	reports    []domain.Report
	temps      []domain.TempReport
	loadFailed bool
}

func New(kv store.KV, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		kv:      kv,
		logger:  logger.WithField("module", "reports"),
		reports: []domain.Report{},
		temps:   []domain.TempReport{},
	}
}

// Load reads the durable collection. Missing data yields an empty collection.
// Corrupt data is logged, the collection is reset to empty and LoadFailed
// reports true until the next successful load.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loaded []domain.Report
	found, err := store.GetJSON(ctx, s.kv, domain.KeyReports, &loaded)
	if err != nil {
		logging.LogError(s.logger, "reports", "Load", "read "+domain.KeyReports, nil, err)
		s.reports = []domain.Report{}
		s.loadFailed = true
		return
	}
	if !found || loaded == nil {
		loaded = []domain.Report{}
	}
	s.reports = loaded
	s.loadFailed = false
	s.logger.WithField("count", len(loaded)).Info("reports loaded")
}

func (s *Store) LoadFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFailed
}

// Save stores report as the only report for its date, replacing any earlier
// one. A temp-typed report is stored as daily and the grand total is always
// the sum of the row totals.
func (s *Store) Save(ctx context.Context, report domain.Report) error {
	if report.ReportID == "" {
		return fmt.Errorf("save report: %w: report id is required", domain.ErrInvalidInput)
	}
	report = report.Clone()
	report.Type = domain.ReportTypeDaily
	report.GrandTotal = summary.GrandTotal(report.DailySales)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Report, 0, len(s.reports)+1)
	for _, existing := range s.reports {
		if existing.Date != report.Date {
			next = append(next, existing)
		}
	}
	next = append(next, report)
	sortNewestFirst(next)

	return s.commit(ctx, "Save", next)
}

// Delete removes a temp report when target names one. Durable reports need
// confirmed set; otherwise ErrConfirmationRequired is returned and nothing
// changes.
func (s *Store) Delete(ctx context.Context, target domain.ReportRef, confirmed bool) error {
	if target.IsTemp() {
		return s.RemoveTemp(target.TempID)
	}
	if target.ReportID == "" {
		return fmt.Errorf("delete report: %w: report id is required", domain.ErrInvalidInput)
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Report, 0, len(s.reports))
	for _, existing := range s.reports {
		if existing.ReportID != target.ReportID {
			next = append(next, existing)
		}
	}
	if len(next) == len(s.reports) {
		return fmt.Errorf("report %s: %w", target.ReportID, domain.ErrNotFound)
	}
	return s.commit(ctx, "Delete", next)
}

// Clear drops every durable report. Temp reports are kept.
func (s *Store) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, "Clear", []domain.Report{})
}

func (s *Store) ClearTemp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temps = []domain.TempReport{}
}

// AddTemp keeps a copy of report as a temp report under a fresh temp id.
func (s *Store) AddTemp(report domain.Report) domain.TempReport {
	temp := domain.TempReport{Report: report.Clone(), TempID: xid.New("tmp")}
	temp.Type = domain.ReportTypeTemp

	s.mu.Lock()
	defer s.mu.Unlock()
	s.temps = append(s.temps, temp)
	return cloneTemp(temp)
}

func (s *Store) RemoveTemp(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, temp := range s.temps {
		if temp.TempID == tempID {
			s.temps = append(s.temps[:i:i], s.temps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("temp report %s: %w", tempID, domain.ErrNotFound)
}

// Reports returns the durable collection, newest first.
func (s *Store) Reports() []domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Report, len(s.reports))
	for i, r := range s.reports {
		out[i] = r.Clone()
	}
	return out
}

func (s *Store) TempReports() []domain.TempReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TempReport, len(s.temps))
	for i, t := range s.temps {
		out[i] = cloneTemp(t)
	}
	return out
}

// Find looks id up as a durable report id, then as a temp id or temp report id.
func (s *Store) Find(id string) (domain.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Store) findLocked(id string) (domain.Report, bool) {
	for _, r := range s.reports {
		if r.ReportID == id {
			return r.Clone(), true
		}
	}
	for _, t := range s.temps {
		if t.TempID == id || t.ReportID == id {
			return t.Report.Clone(), true
		}
	}
	return domain.Report{}, false
}

// CombineByID combines two stored reports (durable or temp) and keeps the
// result as a new temp report.
func (s *Store) CombineByID(firstID, secondID string) (domain.TempReport, error) {
	s.mu.Lock()
	a, okA := s.findLocked(firstID)
	b, okB := s.findLocked(secondID)
	s.mu.Unlock()

	if !okA {
		return domain.TempReport{}, fmt.Errorf("report %s: %w", firstID, domain.ErrNotFound)
	}
	if !okB {
		return domain.TempReport{}, fmt.Errorf("report %s: %w", secondID, domain.ErrNotFound)
	}
	return s.AddTemp(Combine(a, b)), nil
}

// commit persists next and makes it current. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, op string, next []domain.Report) error {
	if err := store.SetJSON(ctx, s.kv, domain.KeyReports, next); err != nil {
		logging.LogError(s.logger, "reports", op, "persist "+domain.KeyReports, len(next), err)
		return fmt.Errorf("persist reports: %w", err)
	}
	s.reports = next
	s.loadFailed = false
	return nil
}

func cloneTemp(t domain.TempReport) domain.TempReport {
	return domain.TempReport{Report: t.Report.Clone(), TempID: t.TempID}
}

