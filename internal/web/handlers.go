package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/PayrollRecon/internal/core"
	"github.com/JonMunkholm/PayrollRecon/internal/logging"
	"github.com/JonMunkholm/PayrollRecon/internal/storage"
	"github.com/JonMunkholm/PayrollRecon/internal/table"
	"github.com/JonMunkholm/PayrollRecon/internal/web/templates"
)

// Upload form field names.
const (
	fieldOldFile = "old_file"
	fieldNewFile = "new_file"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

var (
	errFileTooLarge = errors.New("file too large")
	errBadForm      = errors.New("invalid upload form")
)

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(nil).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// UploadResponse is the JSON body of a successful comparison.
type UploadResponse struct {
	ReportID    string       `json:"report_id"`
	FileName    string       `json:"file_name"`
	DownloadURL string       `json:"download_url"`
	Rows        int          `json:"rows"`
	Summary     core.Summary `json:"summary"`
}

// handleUpload compares the two uploaded payroll files and offers the report
// for download.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxFile+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			s.respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", errFileTooLarge, mbe.Limit))
		case errors.Is(err, http.ErrNotMultipart):
			s.respondError(w, r, core.ErrMissingUpload)
		default:
			s.respondError(w, r, fmt.Errorf("%w: %v", errBadForm, err))
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	oldFile, err := readUpload(r, fieldOldFile, maxFile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	newFile, err := readUpload(r, fieldNewFile, maxFile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := withRequestMetadata(r.Context(), r)
	report, err := s.service.Reconcile(ctx, oldFile, newFile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, UploadResponse{
			ReportID:    report.ID,
			FileName:    report.FileName,
			DownloadURL: templates.DownloadURL(report),
			Rows:        report.TotalRows,
			Summary:     report.Summary,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReportPage(report).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render report page", "error", err)
	}
}

// readUpload reads one file field of a parsed multipart form.
// A missing field means the form was incomplete; a field submitted without
// a file means the user did not pick one.
func readUpload(r *http.Request, field string, maxSize int64) (core.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if _, submitted := r.MultipartForm.Value[field]; submitted {
			return core.Upload{}, core.ErrNoFileSelected
		}
		return core.Upload{}, core.ErrMissingUpload
	}
	if err != nil {
		return core.Upload{}, fmt.Errorf("%w: %v", errBadForm, err)
	}
	defer file.Close()

	if header.Filename == "" {
		return core.Upload{}, core.ErrNoFileSelected
	}
	if header.Size > maxSize {
		return core.Upload{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", errFileTooLarge, field, header.Size, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return core.Upload{}, fmt.Errorf("read %s: %w", field, err)
	}
	return core.Upload{Name: header.Filename, Data: data}, nil
}

// handleDownload serves a staged report as an attachment. Whatever happens,
// the stage (report and uploaded inputs) is deleted when the handler returns.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	fileName := chi.URLParam(r, "fileName")
	if unescaped, err := url.PathUnescape(fileName); err == nil {
		fileName = unescaped
	}
	log := logging.WithFields(r.Context(), "report_id", reportID)

	defer func() {
		if err := s.service.DiscardReport(reportID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Error("failed to remove staged report", "error", err)
		}
	}()

	f, release, err := s.service.OpenReport(reportID, fileName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer release()

	info, err := f.Stat()
	if err != nil {
		s.respondError(w, r, fmt.Errorf("stat report: %w", err))
		return
	}

	if format, err := table.ParseFormat(filepath.Ext(fileName)); err == nil {
		w.Header().Set("Content-Type", format.ContentType())
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Cache-Control", "no-store")

	http.ServeContent(w, r, fileName, info.ModTime(), f)
	log.Info("report downloaded", "file_name", fileName, "size", info.Size())
}

// handleRuns lists recent reconciliation runs from the audit store.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := core.DefaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	runs, err := s.service.RecentRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Limiter: s.service.LimiterStatus()})
}
