package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vendorpulse/vendorpulse/internal/analytics"
	"github.com/vendorpulse/vendorpulse/internal/analytics/export"
	"github.com/vendorpulse/vendorpulse/internal/auth"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

// AnalyticsService defines the analytics data contract used by the handler.
type AnalyticsService interface {
	ValidateVendorID(vendorID string) error
	GetMonthlySales(ctx context.Context, vendorID string) ([]analytics.MonthlySales, error)
	GetProductSales(ctx context.Context, vendorID string) ([]analytics.ProductSales, error)
	GetVendorStats(ctx context.Context, vendorID string) (analytics.VendorStats, error)
	GetDetailedAnalytics(ctx context.Context, vendorID string) (analytics.DetailedAnalytics, error)
	ValidateVendorData(ctx context.Context, vendorID string) (analytics.Validation, error)
	GetDateRangeAnalytics(ctx context.Context, vendorID, start, end string) (analytics.DateRangeAnalytics, error)
	ClearCache(ctx context.Context, vendorID string) error
}

// Handler coordinates HTTP requests for vendor sales analytics.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	auth    auth.Middleware
	csvPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService, authMiddleware auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:  logger,
		service: service,
		auth:    authMiddleware,
		now:     time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type stampedResponse struct {
	Success   bool   `json:"success"`
	VendorID  string `json:"vendorId"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type validationResponse struct {
	Success    bool                 `json:"success"`
	VendorID   string               `json:"vendorId"`
	Timestamp  string               `json:"timestamp"`
	Validation analytics.Validation `json:"validation"`
}

type dateRangeResponse struct {
	Success   bool                         `json:"success"`
	VendorID  string                       `json:"vendorId"`
	DateRange dateRangeQuery               `json:"dateRange"`
	Data      analytics.DateRangeAnalytics `json:"data"`
}

type dateRangeQuery struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) handleMonthlySales(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	rows, err := h.service.GetMonthlySales(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get monthly sales", vendorID, err, "Failed to fetch monthly sales")
		return
	}
	httpx.OK(w, rows)
}

func (h *Handler) handleProductSales(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	rows, err := h.service.GetProductSales(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get product sales", vendorID, err, "Failed to fetch product sales")
		return
	}
	httpx.OK(w, rows)
}

func (h *Handler) handleVendorStats(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetVendorStats(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get vendor stats", vendorID, err, "Failed to fetch vendor statistics")
		return
	}
	httpx.OK(w, stats)
}

func (h *Handler) handleDetailed(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	detailed, err := h.service.GetDetailedAnalytics(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get detailed analytics", vendorID, err, "Failed to fetch detailed analytics")
		return
	}
	httpx.JSON(w, http.StatusOK, stampedResponse{
		Success:   true,
		VendorID:  vendorID,
		Timestamp: h.timestamp(),
		Data:      detailed,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	validation, err := h.service.ValidateVendorData(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "validate vendor data", vendorID, err, "Failed to validate data")
		return
	}
	httpx.JSON(w, http.StatusOK, validationResponse{
		Success:    true,
		VendorID:   vendorID,
		Timestamp:  h.timestamp(),
		Validation: validation,
	})
}

func (h *Handler) handleDateRange(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	query := rangeQuery(r)
	report, err := h.service.GetDateRangeAnalytics(r.Context(), vendorID, query.StartDate, query.EndDate)
	if err != nil {
		h.handleServiceError(w, "get date range analytics", vendorID, err, "Failed to fetch date range analytics")
		return
	}
	httpx.JSON(w, http.StatusOK, dateRangeResponse{
		Success:   true,
		VendorID:  vendorID,
		DateRange: query,
		Data:      report,
	})
}

func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	if err := h.service.ClearCache(r.Context(), vendorID); err != nil {
		h.handleServiceError(w, "clear cache", vendorID, err, "Failed to clear cache")
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Success: true, Message: "Cache cleared successfully"})
}

func (h *Handler) handleMonthlyCSV(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	rows, err := h.service.GetMonthlySales(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get monthly sales", vendorID, err, "Failed to fetch monthly sales")
		return
	}
	h.streamCSV(w, "monthly-sales-"+vendorID, func(buf io.Writer) error {
		return export.WriteMonthlySalesCSV(buf, rows)
	})
}

func (h *Handler) handleProductCSV(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	rows, err := h.service.GetProductSales(r.Context(), vendorID)
	if err != nil {
		h.handleServiceError(w, "get product sales", vendorID, err, "Failed to fetch product sales")
		return
	}
	h.streamCSV(w, "product-sales-"+vendorID, func(buf io.Writer) error {
		return export.WriteProductSalesCSV(buf, rows)
	})
}

func (h *Handler) handleDateRangeCSV(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.resolveVendor(w, r)
	if !ok {
		return
	}
	query := rangeQuery(r)
	report, err := h.service.GetDateRangeAnalytics(r.Context(), vendorID, query.StartDate, query.EndDate)
	if err != nil {
		h.handleServiceError(w, "get date range analytics", vendorID, err, "Failed to fetch date range analytics")
		return
	}
	h.streamCSV(w, "date-range-"+vendorID, func(buf io.Writer) error {
		return export.WriteDateRangeCSV(buf, report)
	})
}

func (h *Handler) streamCSV(w http.ResponseWriter, name string, write func(io.Writer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := write(buf); err != nil {
		h.handleServerError(w, "write csv", err, "Failed to export data")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", name))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

// resolveVendor picks the path vendor or the caller's own id and enforces
// that vendors only read their own data. It runs before any aggregation.
func (h *Handler) resolveVendor(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		auth.WriteError(w, auth.ErrAuthRequired)
		return "", false
	}
	vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))
	if vendorID == "" {
		vendorID = principal.VendorID
	}
	if vendorID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Vendor ID is required")
		return "", false
	}
	if !principal.CanAccess(vendorID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "Access denied")
		return "", false
	}
	if err := h.service.ValidateVendorID(vendorID); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid vendor ID")
		return "", false
	}
	return vendorID, true
}

func rangeQuery(r *http.Request) dateRangeQuery {
	q := r.URL.Query()
	return dateRangeQuery{
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
	}
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, op, vendorID string, err error, detail string) {
	if httpx.StatusFor(err) != http.StatusInternalServerError {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Error(op, slog.String("vendor_id", vendorID), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", detail)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error, detail string) {
	h.logError(context, err)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", detail)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
