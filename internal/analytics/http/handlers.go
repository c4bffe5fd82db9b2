package analytichttp

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-receivables/internal/analytics"
	"github.com/odyssey-erp/odyssey-receivables/internal/exports"
	"github.com/odyssey-erp/odyssey-receivables/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-receivables/internal/spreadsheet"
)

const pdfContentType = "application/pdf"

// ReportBuilder renders a report for the given query.
type ReportBuilder interface {
	Build(ctx context.Context, name analytics.ReportName, query url.Values) (analytics.Artifact, error)
}

// PDFConverter turns a rendered workbook into PDF bytes.
type PDFConverter interface {
	ConvertSpreadsheet(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// ExportService queues and serves asynchronous exports.
type ExportService interface {
	Submit(ctx context.Context, req exports.Request) (string, error)
	Get(ctx context.Context, id string) (exports.Export, error)
}

// Handler serves report downloads and exports.
type Handler struct {
	logger      *slog.Logger
	reports     ReportBuilder
	pdf         PDFConverter
	exports     ExportService
	exportLimit int
}

// NewHandler constructs the analytics HTTP handler. pdf and exports may be
// nil, in which case their routes are not mounted.
func NewHandler(logger *slog.Logger, reports ReportBuilder, pdf PDFConverter, exports ExportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		reports:     reports,
		pdf:         pdf,
		exports:     exports,
		exportLimit: 10,
	}
}

// WithExportLimit sets the per-minute limit on PDF and export requests.
func (h *Handler) WithExportLimit(perMinute int) {
	if perMinute > 0 {
		h.exportLimit = perMinute
	}
}

func (h *Handler) handleWorkbook(name analytics.ReportName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, err := h.reports.Build(r.Context(), name, r.URL.Query())
		if err != nil {
			h.respondError(w, r, "build "+string(name), err)
			return
		}
		httpx.Attachment(w, artifact.ContentType, artifact.Filename)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(artifact.Data); err != nil {
			h.logger.Warn("stream workbook", slog.String("report", string(name)), slog.Any("error", err))
		}
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.reports.Build(r.Context(), analytics.ReportReceivables, r.URL.Query())
	if err != nil {
		h.respondError(w, r, "build receivables", err)
		return
	}
	pdf, err := h.pdf.ConvertSpreadsheet(r.Context(), artifact.Filename, artifact.Data)
	if err != nil {
		h.respondError(w, r, "convert pdf", httpx.NewStatusError(http.StatusBadGateway, "", err))
		return
	}
	filename := strings.TrimSuffix(artifact.Filename, filepath.Ext(artifact.Filename)) + ".pdf"
	httpx.Attachment(w, pdfContentType, filename)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("stream pdf", slog.Any("error", err))
	}
}

type exportResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
}

func (h *Handler) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	var req exports.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, "decode export", err)
		return
	}
	id, err := h.exports.Submit(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "submit export", err)
		return
	}
	location := path.Join(r.URL.Path, id)
	w.Header().Set("Location", location)
	httpx.JSON(w, http.StatusAccepted, exportResponse{ID: id, Status: string(exports.StatusPending), Location: location})
}

func (h *Handler) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exp, err := h.exports.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get export", err)
		return
	}
	switch exp.Status {
	case exports.StatusReady:
		httpx.Attachment(w, contentTypeFor(exp.Filename), exp.Filename)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(exp.Data); err != nil {
			h.logger.Warn("stream export", slog.String("id", id), slog.Any("error", err))
		}
	case exports.StatusFailed:
		httpx.Problem(w, http.StatusUnprocessableEntity, "Exportación fallida", exp.Reason)
	default:
		httpx.JSON(w, http.StatusAccepted, exportResponse{ID: id, Status: string(exp.Status)})
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	se := httpx.ToStatus(err)
	attrs := []any{
		slog.String("op", op),
		slog.String("path", r.URL.Path),
		slog.Int("status", se.Status),
		slog.Any("error", err),
	}
	switch {
	case se.Status >= http.StatusInternalServerError:
		h.logger.Error("analytics request failed", attrs...)
	case errors.Is(err, context.Canceled):
		h.logger.Debug("analytics request canceled", attrs...)
	default:
		h.logger.Info("analytics request rejected", attrs...)
	}
	httpx.RespondError(w, se)
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return spreadsheet.ContentType
}
