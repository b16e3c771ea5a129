package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/logging"
	"quicksale/backend/internal/notify"
	"quicksale/backend/internal/products"
	"quicksale/backend/internal/reports"
	"quicksale/backend/internal/sales"
	"quicksale/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// proposalTTL bounds how long an uncommitted import proposal is kept.
const proposalTTL = 30 * time.Minute

type Deps struct {
	Catalog  *products.Catalog
	Reports  *reports.Store
	Ledger   *sales.Ledger
	Notifier notify.Sink
	Sink     backup.Sink
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

type Service struct {
	catalog  *products.Catalog
	reports  *reports.Store
	ledger   *sales.Ledger
	notifier notify.Sink
	sink     backup.Sink
	logger   logrus.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	proposals map[string]pendingImport
}

type pendingImport struct {
	kind     backup.Kind
	products *products.ImportProposal
	reports  *reports.ImportProposal
	expires  time.Time
}

// ImportProposal describes a validated backup waiting for CommitImport.
type ImportProposal struct {
	ID                   string           `json:"id"`
	Kind                 string           `json:"kind"`
	Mode                 string           `json:"mode,omitempty"`
	Description          string           `json:"description"`
	RequiresConfirmation bool             `json:"requiresConfirmation"`
	Duplicate            bool             `json:"duplicate,omitempty"`
	Dropped              int              `json:"dropped,omitempty"`
	Products             []domain.Product `json:"products,omitempty"`
	Report               *domain.Report   `json:"report,omitempty"`
	ExpiresAt            time.Time        `json:"expiresAt"`
}

type ImportOutcome struct {
	Kind      string `json:"kind"`
	Imported  int    `json:"imported"`
	Dropped   int    `json:"dropped,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	ReportID  string `json:"reportId,omitempty"`
}

// ExportResult is an encoded backup plus where the configured sink put it.
type ExportResult struct {
	File     backup.File
	Location string
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogSink{Logger: deps.Logger}
	}
	if deps.Sink == nil {
		deps.Sink = backup.NopSink{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Ledger == nil {
		deps.Ledger = sales.NewLedger(deps.Now)
	}
	return &Service{
		catalog:   deps.Catalog,
		reports:   deps.Reports,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		sink:      deps.Sink,
		logger:    deps.Logger.WithField("module", "service"),
		now:       deps.Now,
		proposals: make(map[string]pendingImport),
	}
}

// Load reads the catalog and the reports. Corrupt stored data is reported as
// a warning; both collections start empty in that case.
func (s *Service) Load(ctx context.Context) {
	s.catalog.Load(ctx)
	if s.catalog.LoadFailed() {
		s.notifier.Notify("Stored products could not be read; starting with an empty catalog", domain.SeverityWarning)
	}
	s.reports.Load(ctx)
	if s.reports.LoadFailed() {
		s.notifier.Notify("Stored reports could not be read; starting with no reports", domain.SeverityWarning)
	}
}

// LoadFailures lists which collections failed to load.
func (s *Service) LoadFailures() []string {
	var out []string
	if s.catalog.LoadFailed() {
		out = append(out, domain.KeyProducts)
	}
	if s.reports.LoadFailed() {
		out = append(out, domain.KeyReports)
	}
	return out
}

// ---- products

func (s *Service) ListProducts() []domain.Product {
	return s.catalog.List()
}

func (s *Service) GetProduct(id int) (domain.Product, error) {
	return s.catalog.Get(id)
}

func (s *Service) NextProductID() int {
	return s.catalog.NextID()
}

func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	created, err := s.catalog.Add(ctx, in)
	if err != nil {
		return domain.Product{}, s.fail("Could not add product", err)
	}
	s.logAudit(ctx, "product_create", fmt.Sprintf("id=%d,name=%s", created.ID, created.Name))
	s.notifier.Notify(fmt.Sprintf("Product %s added", created.Name), domain.SeveritySuccess)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int, patch domain.ProductPatch) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	updated, err := s.catalog.Update(ctx, id, patch)
	if err != nil {
		return domain.Product{}, s.fail("Could not update product", err)
	}
	s.logAudit(ctx, "product_update", fmt.Sprintf("id=%d", id))
	s.notifier.Notify(fmt.Sprintf("Product %s updated", updated.Name), domain.SeveritySuccess)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, id); err != nil {
		return s.fail("Could not delete product", err)
	}
	s.logAudit(ctx, "product_delete", fmt.Sprintf("id=%d", id))
	s.notifier.Notify("Product deleted", domain.SeveritySuccess)
	return nil
}

func (s *Service) ClearProducts(ctx context.Context, confirmed bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := s.catalog.Clear(ctx); err != nil {
		return s.fail("Could not clear products", err)
	}
	s.logAudit(ctx, "product_clear", "all")
	s.notifier.Notify("All products removed", domain.SeverityWarning)
	return nil
}

func (s *Service) ExportProducts(ctx context.Context) (ExportResult, error) {
	file, err := s.catalog.Export(s.now())
	if err != nil {
		return ExportResult{}, s.fail("Could not export products", err)
	}
	return s.deliver(ctx, file)
}

// ProposeProductImport validates a products backup read from opener and keeps
// it until CommitImport or DiscardImport.
func (s *Service) ProposeProductImport(ctx context.Context, opener backup.Opener, mode products.ImportMode) (ImportProposal, error) {
	if err := requireAdmin(ctx); err != nil {
		return ImportProposal{}, err
	}
	content, err := backup.Read(ctx, opener)
	if err != nil {
		return ImportProposal{}, s.fail("Could not import products", err)
	}
	p, err := s.catalog.ProposeImport(content, mode)
	if err != nil {
		return ImportProposal{}, s.fail("Could not import products", err)
	}

	expires := s.hold(p.ID, pendingImport{kind: backup.KindProducts, products: p})
	return ImportProposal{
		ID:                   p.ID,
		Kind:                 backup.KindProducts.String(),
		Mode:                 string(p.Mode),
		Description:          p.Description,
		RequiresConfirmation: p.RequiresConfirmation,
		Dropped:              p.Dropped,
		Products:             p.Products,
		ExpiresAt:            expires,
	}, nil
}

// ---- reports

func (s *Service) ListReports() []domain.Report {
	return s.reports.Reports()
}

func (s *Service) ListTempReports() []domain.TempReport {
	return s.reports.TempReports()
}

func (s *Service) FindReport(id string) (domain.Report, error) {
	r, ok := s.reports.Find(id)
	if !ok {
		return domain.Report{}, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Service) SaveReport(ctx context.Context, report domain.Report) (domain.Report, error) {
	if report.ReportID == "" {
		report.ReportID = xid.New("")
	}
	if report.DailySales == nil {
		report.DailySales = []domain.SummaryItem{}
	}
	if err := s.reports.Save(ctx, report); err != nil {
		return domain.Report{}, s.fail("Could not save report", err)
	}
	s.notifier.Notify(fmt.Sprintf("Report for %s saved", report.Date), domain.SeveritySuccess)
	saved, _ := s.reports.Find(report.ReportID)
	return saved, nil
}

func (s *Service) DeleteReport(ctx context.Context, ref domain.ReportRef, confirmed bool) error {
	if !ref.IsTemp() {
		if err := requireAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.reports.Delete(ctx, ref, confirmed); err != nil {
		if errors.Is(err, domain.ErrConfirmationRequired) {
			return err
		}
		return s.fail("Could not delete report", err)
	}
	if !ref.IsTemp() {
		s.logAudit(ctx, "report_delete", ref.ReportID)
	}
	s.notifier.Notify("Report deleted", domain.SeveritySuccess)
	return nil
}

func (s *Service) ClearReports(ctx context.Context, confirmed bool) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.reports.Clear(ctx, confirmed); err != nil {
		if errors.Is(err, domain.ErrConfirmationRequired) {
			return err
		}
		return s.fail("Could not clear reports", err)
	}
	s.logAudit(ctx, "report_clear", "all")
	s.notifier.Notify("All reports removed", domain.SeverityWarning)
	return nil
}

func (s *Service) CombineReports(firstID, secondID string) (domain.TempReport, error) {
	combined, err := s.reports.CombineByID(firstID, secondID)
	if err != nil {
		return domain.TempReport{}, s.fail("Could not combine reports", err)
	}
	s.notifier.Notify(fmt.Sprintf("Combined report created: %s", combined.Date), domain.SeveritySuccess)
	return combined, nil
}

func (s *Service) AddTempReport(report domain.Report) domain.TempReport {
	if report.ReportID == "" {
		report.ReportID = xid.New("")
	}
	return s.reports.AddTemp(report)
}

func (s *Service) RemoveTempReport(tempID string) error {
	if err := s.reports.RemoveTemp(tempID); err != nil {
		return s.fail("Could not remove temporary report", err)
	}
	return nil
}

func (s *Service) ClearTempReports() {
	s.reports.ClearTemp()
	s.notifier.Notify("Temporary reports cleared", domain.SeverityInfo)
}

func (s *Service) ExportReport(ctx context.Context, id string) (ExportResult, error) {
	file, err := s.reports.Export(id, s.now())
	if err != nil {
		return ExportResult{}, s.fail("Could not export report", err)
	}
	return s.deliver(ctx, file)
}

// WriteReportXLSX renders the report with the given id as a spreadsheet.
func (s *Service) WriteReportXLSX(w io.Writer, id string) (string, error) {
	report, err := s.FindReport(id)
	if err != nil {
		return "", err
	}
	if err := reports.WriteXLSX(w, report); err != nil {
		return "", fmt.Errorf("render xlsx: %w", err)
	}
	return reports.XLSXFileName(report), nil
}

func (s *Service) ProposeReportImport(ctx context.Context, opener backup.Opener) (ImportProposal, error) {
	content, err := backup.Read(ctx, opener)
	if err != nil {
		return ImportProposal{}, s.fail("Could not import report", err)
	}
	p, err := s.reports.ProposeImport(content)
	if err != nil {
		return ImportProposal{}, s.fail("Could not import report", err)
	}

	expires := s.hold(p.ID, pendingImport{kind: backup.KindReports, reports: p})
	report := p.Report
	return ImportProposal{
		ID:          p.ID,
		Kind:        backup.KindReports.String(),
		Description: p.Description,
		Duplicate:   p.Duplicate,
		Report:      &report,
		ExpiresAt:   expires,
	}, nil
}

// ImportReport validates and commits a reports backup in one step.
func (s *Service) ImportReport(ctx context.Context, opener backup.Opener) (ImportOutcome, error) {
	p, err := s.ProposeReportImport(ctx, opener)
	if err != nil {
		return ImportOutcome{}, err
	}
	return s.CommitImport(ctx, p.ID, true)
}

// ---- imports

// CommitImport applies a held proposal. A proposal that needs confirmation
// stays held when confirmed is false.
func (s *Service) CommitImport(ctx context.Context, id string, confirmed bool) (ImportOutcome, error) {
	pending, ok := s.take(id)
	if !ok {
		return ImportOutcome{}, fmt.Errorf("import %s: %w", id, domain.ErrNotFound)
	}

	switch pending.kind {
	case backup.KindProducts:
		if err := requireAdmin(ctx); err != nil {
			s.restore(id, pending)
			return ImportOutcome{}, err
		}
		res, err := s.catalog.CommitImport(ctx, pending.products, confirmed)
		if errors.Is(err, domain.ErrConfirmationRequired) {
			s.restore(id, pending)
			return ImportOutcome{}, err
		}
		if err != nil {
			return ImportOutcome{}, s.fail("Could not import products", err)
		}
		s.logAudit(ctx, "product_import", fmt.Sprintf("mode=%s,imported=%d,dropped=%d", res.Mode, res.Imported, res.Dropped))
		s.notifier.Notify(fmt.Sprintf("Import successful: %d product(s) imported", res.Imported), domain.SeveritySuccess)
		return ImportOutcome{Kind: pending.kind.String(), Imported: res.Imported, Dropped: res.Dropped}, nil

	default:
		res, err := s.reports.CommitImport(ctx, pending.reports)
		if err != nil {
			return ImportOutcome{}, s.fail("Could not import report", err)
		}
		if res.Duplicate {
			s.notifier.Notify("Report already present; nothing imported", domain.SeverityInfo)
			return ImportOutcome{Kind: pending.kind.String(), Duplicate: true, ReportID: res.ReportID}, nil
		}
		s.notifier.Notify("Report imported successfully", domain.SeveritySuccess)
		return ImportOutcome{Kind: pending.kind.String(), Imported: 1, ReportID: res.ReportID}, nil
	}
}

func (s *Service) DiscardImport(id string) error {
	if _, ok := s.take(id); !ok {
		return fmt.Errorf("import %s: %w", id, domain.ErrNotFound)
	}
	s.notifier.Notify("Import cancelled", domain.SeverityInfo)
	return nil
}

func (s *Service) hold(id string, p pendingImport) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	p.expires = s.now().Add(proposalTTL)
	s.proposals[id] = p
	return p.expires
}

func (s *Service) take(id string) (pendingImport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	p, ok := s.proposals[id]
	if ok {
		delete(s.proposals, id)
	}
	return p, ok
}

func (s *Service) restore(id string, p pendingImport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[id] = p
}

func (s *Service) pruneLocked() {
	now := s.now()
	for id, p := range s.proposals {
		if now.After(p.expires) {
			delete(s.proposals, id)
		}
	}
}

// ---- sales

func (s *Service) AddPendingSale(productID int, qty int) error {
	product, err := s.catalog.Get(productID)
	if err != nil {
		return s.fail("Could not add sale", err)
	}
	if err := s.ledger.AddPending(product, qty); err != nil {
		return s.fail("Could not add sale", err)
	}
	return nil
}

func (s *Service) RemovePendingSale(index int) error {
	if err := s.ledger.RemovePending(index); err != nil {
		return s.fail("Could not remove sale line", err)
	}
	return nil
}

func (s *Service) IncreasePendingSale(index int) error {
	if err := s.ledger.IncreasePending(index); err != nil {
		return s.fail("Could not change quantity", err)
	}
	return nil
}

func (s *Service) DecreasePendingSale(index int) error {
	if err := s.ledger.DecreasePending(index); err != nil {
		return s.fail("Could not change quantity", err)
	}
	return nil
}

func (s *Service) ClearPendingSales() {
	s.ledger.ClearPending()
}

func (s *Service) PendingSales() ([]sales.PendingSale, decimal.Decimal) {
	return s.ledger.Pending(), s.ledger.PendingTotal()
}

func (s *Service) FinalizeSale() bool {
	if !s.ledger.Finalize() {
		s.notifier.Notify("There are no pending sales to finalize", domain.SeverityWarning)
		return false
	}
	s.notifier.Notify("Sale recorded", domain.SeveritySuccess)
	return true
}

func (s *Service) DailySales() []domain.SaleRecord {
	return s.ledger.DailySales()
}

func (s *Service) DailySummary() ([]domain.SummaryItem, decimal.Decimal) {
	return s.ledger.Summary()
}

func (s *Service) ClearDailySales(ctx context.Context) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	s.ledger.ClearDaily()
	s.logAudit(ctx, "sales_clear", "daily")
	return nil
}

// CloseDay saves the day's sales as a daily report and starts a new day.
func (s *Service) CloseDay(ctx context.Context) (domain.Report, error) {
	report, err := s.ledger.CloseDay(ctx, s.reports)
	if err != nil {
		return domain.Report{}, s.fail("Could not close the day", err)
	}
	s.logAudit(ctx, "day_close", report.ReportID)
	s.notifier.Notify(fmt.Sprintf("Day closed: total %s", report.GrandTotal.StringFixed(2)), domain.SeveritySuccess)
	return report, nil
}

// ---- helpers

func (s *Service) deliver(ctx context.Context, file backup.File) (ExportResult, error) {
	location, err := s.sink.Deliver(ctx, file)
	if err != nil {
		return ExportResult{File: file}, s.fail("Could not deliver backup", err)
	}
	msg := fmt.Sprintf("Backup %s exported", file.Name)
	if location != "" {
		msg = fmt.Sprintf("Backup %s exported to %s", file.Name, location)
	}
	s.notifier.Notify(msg, domain.SeveritySuccess)
	return ExportResult{File: file, Location: location}, nil
}

// fail notifies the user about err and returns it unchanged. A cancelled
// file choice is reported as a warning, not an error.
func (s *Service) fail(prefix string, err error) error {
	switch {
	case errors.Is(err, domain.ErrCancelled):
		s.notifier.Notify("No file selected; "+domain.ErrCancelled.Error(), domain.SeverityWarning)
	default:
		s.notifier.Notify(fmt.Sprintf("%s: %s", prefix, userMessage(err)), domain.SeverityError)
	}
	return err
}

func userMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	s.logger.WithFields(logrus.Fields{
		"audit":  action,
		"actor":  actor.Username,
		"role":   actor.Role,
		"detail": strings.TrimSpace(detail),
	}).Info("audit")
}
