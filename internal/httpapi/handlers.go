package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"quicksale/backend/internal/backup"
	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/products"
	"quicksale/backend/internal/reports"
	"quicksale/backend/internal/sales"
)

// ---- products

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": a.service.ListProducts()})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.GetProduct(id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleNextProductID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"id": a.service.NextProductID()})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), in)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var patch domain.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearProducts(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ClearProducts(r.Context(), confirmed(r)); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ExportProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if result.Location != "" {
		w.Header().Set("X-Backup-Location", result.Location)
	}
	writeAttachment(w, result.File.Name, result.File.ContentType, result.File.Content)
}

func (a *API) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	mode, err := products.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	content, ok := readUpload(w, r)
	if !ok {
		return
	}
	proposal, err := a.service.ProposeProductImport(r.Context(), backup.BytesOpener(content), mode)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// ---- imports

func (a *API) handleCommitImport(w http.ResponseWriter, r *http.Request) {
	outcome, err := a.service.CommitImport(r.Context(), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleDiscardImport(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DiscardImport(chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sales

type pendingView struct {
	Lines []sales.PendingSale `json:"lines"`
	Total decimal.Decimal     `json:"total"`
}

func (a *API) pending() pendingView {
	lines, total := a.service.PendingSales()
	return pendingView{Lines: lines, Total: total}
}

func (a *API) handlePendingSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.pending())
}

func (a *API) handleAddPendingSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"productId"`
		Quantity  int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.AddPendingSale(req.ProductID, req.Quantity); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.pending())
}

func (a *API) handleClearPendingSales(w http.ResponseWriter, r *http.Request) {
	a.service.ClearPendingSales()
	writeJSON(w, http.StatusOK, a.pending())
}

func (a *API) pendingLineAction(fn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := pathInt(r, "index")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := fn(index); err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.pending())
	}
}

func (a *API) handleRemovePendingSale(w http.ResponseWriter, r *http.Request) {
	a.pendingLineAction(a.service.RemovePendingSale)(w, r)
}

func (a *API) handleIncreasePendingSale(w http.ResponseWriter, r *http.Request) {
	a.pendingLineAction(a.service.IncreasePendingSale)(w, r)
}

func (a *API) handleDecreasePendingSale(w http.ResponseWriter, r *http.Request) {
	a.pendingLineAction(a.service.DecreasePendingSale)(w, r)
}

func (a *API) handleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	finalized := a.service.FinalizeSale()
	writeJSON(w, http.StatusOK, map[string]any{
		"finalized": finalized,
		"daily":     a.service.DailySales(),
	})
}

func (a *API) handleDailySales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sales": a.service.DailySales()})
}

func (a *API) handleClearDailySales(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ClearDailySales(r.Context()); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	items, total := a.service.DailySummary()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "grandTotal": total})
}

func (a *API) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.CloseDay(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ---- reports

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"reports": a.service.ListReports()})
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.FindReport(chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	var report domain.Report
	if err := decodeJSON(r, &report); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	saved, err := a.service.SaveReport(r.Context(), report)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	ref := domain.ReportRef{ReportID: chi.URLParam(r, "id")}
	if err := a.service.DeleteReport(r.Context(), ref, confirmed(r)); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearReports(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ClearReports(r.Context(), confirmed(r)); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCombineReports(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstID  string `json:"firstId"`
		SecondID string `json:"secondId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	combined, err := a.service.CombineReports(req.FirstID, req.SecondID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, combined)
}

func (a *API) handleListTempReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"reports": a.service.ListTempReports()})
}

func (a *API) handleAddTempReport(w http.ResponseWriter, r *http.Request) {
	var report domain.Report
	if err := decodeJSON(r, &report); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.service.AddTempReport(report))
}

func (a *API) handleRemoveTempReport(w http.ResponseWriter, r *http.Request) {
	if err := a.service.RemoveTempReport(chi.URLParam(r, "tempId")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleClearTempReports(w http.ResponseWriter, r *http.Request) {
	a.service.ClearTempReports()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExportReport(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ExportReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if result.Location != "" {
		w.Header().Set("X-Backup-Location", result.Location)
	}
	writeAttachment(w, result.File.Name, result.File.ContentType, result.File.Content)
}

func (a *API) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := a.service.WriteReportXLSX(&buf, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, name, reports.XLSXContentType, buf.Bytes())
}

func (a *API) handleImportReport(w http.ResponseWriter, r *http.Request) {
	content, ok := readUpload(w, r)
	if !ok {
		return
	}
	proposal, err := a.service.ProposeReportImport(r.Context(), backup.BytesOpener(content))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// ---- notifications and users

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items := a.notifications.List()
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 0)
	if limit > len(items) {
		limit = len(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items[len(items)-limit:]})
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.CreateCashier(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// readUpload reads a backup file sent as the raw request body. An empty body
// reaches the service as a cancelled selection.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	content, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("upload too large"))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return content, true
}
