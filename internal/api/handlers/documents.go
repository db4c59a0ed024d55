package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/api"
	"github.com/cloo-solutions/wellrag/internal/domain"
	"github.com/cloo-solutions/wellrag/internal/service"
	"github.com/cloo-solutions/wellrag/internal/storage"
	"github.com/cloo-solutions/wellrag/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

const (
	uploadField = "file"
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DocumentProcessor runs an uploaded file through the pipeline.
type DocumentProcessor interface {
	Run(ctx context.Context, path, source string) (*service.DocumentResult, error)
}

// ReportArchive reads archived reports back.
type ReportArchive interface {
	Report(ctx context.Context, digest string) (*storage.ArchivedReport, error)
	DocumentURL(ctx context.Context, digest string) (string, error)
}

// ReportExporter renders a report as a spreadsheet.
type ReportExporter interface {
	ReportXLSX(source string, report domain.WellReport) ([]byte, error)
}

type DocumentHandler struct {
	processor DocumentProcessor
	archive   ReportArchive
	exporter  ReportExporter
}

// NewDocumentHandler creates the handler. archive may be nil when S3 is not
// configured; exporter may be nil to disable ?format=xlsx.
func NewDocumentHandler(processor DocumentProcessor, archive ReportArchive, exporter ReportExporter) *DocumentHandler {
	return &DocumentHandler{processor: processor, archive: archive, exporter: exporter}
}

type ArchivedReportResponse struct {
	*storage.ArchivedReport
	DownloadURL string `json:"download_url,omitempty"`
}

// Upload accepts a multipart PDF in the "file" field and returns the report.
// With ?format=xlsx the report is returned as a workbook instead.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && (format != "xlsx" || h.exporter == nil) {
		api.Error(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, domain.Wrap(domain.ErrUploadTooLarge, err))
			return
		}
		api.Error(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	source := filepath.Base(header.Filename)
	if source == "." || source == "/" || source == "" {
		api.Error(w, http.StatusBadRequest, "file name is required")
		return
	}

	telemetry.SetTag(r.Context(), "document.source", source)

	tmp, err := os.CreateTemp("", "wellrag-upload-*.pdf")
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}

	result, err := h.processor.Run(r.Context(), tmp.Name(), source)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if format == "xlsx" {
		data, err := h.exporter.ReportXLSX(result.Source, result.Report)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+reportBase(result.Source)+`.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func reportBase(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return strings.ReplaceAll(base, `"`, "")
}

// Get returns an archived report by document digest. An unknown digest is a
// 404; an unreachable archive is a 503.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		api.Error(w, http.StatusNotFound, "document archive is not configured")
		return
	}

	digest := chi.URLParam(r, "digest")
	telemetry.SetTag(r.Context(), "document.digest", digest)

	report, err := h.archive.Report(r.Context(), digest)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ArchivedReportResponse{ArchivedReport: report}
	if url, err := h.archive.DocumentURL(r.Context(), digest); err == nil {
		resp.DownloadURL = url
	}
	api.Success(w, http.StatusOK, resp)
}
