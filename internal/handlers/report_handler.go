package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

// ReportHandler serves generated research reports.
type ReportHandler struct {
	reports interfaces.ReportService
	logger  arbor.ILogger
}

func NewReportHandler(reports interfaces.ReportService, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// LatestHandler returns metadata of the most recent report.
func (h *ReportHandler) LatestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := h.reports.Latest()
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "no reports generated yet")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteData(w, report)
}

// RenderHandler serves /api/reports/{name}/html and /{name}/pdf.
func (h *ReportHandler) RenderHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		WriteError(w, http.StatusBadRequest, "expected /api/reports/{name}/html or /api/reports/{name}/pdf")
		return
	}
	name, format := parts[0], parts[1]

	switch format {
	case "html":
		body, err := h.reports.RenderHTML(name)
		if err != nil {
			h.writeRenderError(w, name, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	case "pdf":
		body, err := h.reports.RenderPDF(name)
		if err != nil {
			h.writeRenderError(w, name, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.pdf"`)
		_, _ = w.Write(body)
	default:
		WriteError(w, http.StatusBadRequest, "unsupported report format: "+format)
	}
}

func (h *ReportHandler) writeRenderError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, interfaces.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "report not found: "+name)
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}
