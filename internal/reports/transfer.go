package reports

import (
	"context"
	"fmt"
	"time"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/summary"
	"quicksale/backend/internal/xid"
)

// ImportProposal is a validated report backup waiting to be committed.
type ImportProposal struct {
	ID          string        `json:"id"`
	Report      domain.Report `json:"report"`
	Duplicate   bool          `json:"duplicate"`
	Description string        `json:"description"`
}

type ImportResult struct {
	ReportID  string `json:"reportId"`
	Duplicate bool   `json:"duplicate"`
}

// Export encodes the report (durable or temp) with the given id as a
// reports_backup envelope.
func (s *Store) Export(id string, now time.Time) (backup.File, error) {
	report, ok := s.Find(id)
	if !ok {
		return backup.File{}, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return backup.Encode(backup.KindReports, report, now)
}

// ProposeImport validates a reports backup without touching the collection.
// Any envelope or payload problem is a *domain.ValidationError.
func (s *Store) ProposeImport(content []byte) (*ImportProposal, error) {
	env, err := backup.Decode(backup.KindReports, content)
	if err != nil {
		return nil, err
	}
	report, err := backup.DecodeReport(env.Data)
	if err != nil {
		return nil, err
	}
	report.GrandTotal = summary.GrandTotal(report.DailySales)

	p := &ImportProposal{ID: xid.New("imp"), Report: report}
	if _, exists := s.findDurable(report.ReportID); exists {
		p.Duplicate = true
		p.Description = fmt.Sprintf("report %s is already stored; importing it changes nothing", report.ReportID)
	} else {
		p.Description = fmt.Sprintf("import report %s dated %s with %d rows, total %s",
			report.ReportID, report.Date, len(report.DailySales), report.GrandTotal.StringFixed(2))
	}
	return p, nil
}

// CommitImport applies a proposal. A report id that is already stored makes
// the import a successful no-op.
func (s *Store) CommitImport(ctx context.Context, p *ImportProposal) (ImportResult, error) {
	if p == nil {
		return ImportResult{}, fmt.Errorf("commit import: %w: no proposal", domain.ErrInvalidInput)
	}
	report := p.Report.Clone()
	report.Type = domain.ReportTypeDaily
	report.GrandTotal = summary.GrandTotal(report.DailySales)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reports {
		if existing.ReportID == report.ReportID {
			s.logger.WithField("reportId", report.ReportID).Info("report import skipped, already present")
			return ImportResult{ReportID: report.ReportID, Duplicate: true}, nil
		}
	}

	next := make([]domain.Report, 0, len(s.reports)+1)
	next = append(next, s.reports...)
	next = append(next, report)
	sortNewestFirst(next)

	if err := s.commit(ctx, "CommitImport", next); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{ReportID: report.ReportID}, nil
}

// Import validates and commits in one step. Report imports never need
// confirmation.
func (s *Store) Import(ctx context.Context, content []byte) (ImportResult, error) {
	p, err := s.ProposeImport(content)
	if err != nil {
		return ImportResult{}, err
	}
	return s.CommitImport(ctx, p)
}

func (s *Store) findDurable(id string) (domain.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ReportID == id {
			return r.Clone(), true
		}
	}
	return domain.Report{}, false
}
