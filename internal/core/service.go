package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/PayrollRecon/internal/logging"
	"github.com/JonMunkholm/PayrollRecon/internal/storage"
	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

var (
	// ErrMissingUpload is returned when either payroll file is absent or empty.
	ErrMissingUpload = errors.New("please upload both old and new payroll files")

	// ErrNoFileSelected is returned when a file field was submitted without a file.
	ErrNoFileSelected = errors.New("no file selected")
)

// DefaultReportName is the base name of the downloadable report.
const DefaultReportName = "Payroll Comparison"

// DefaultPreviewRows is how many report rows the result page shows.
const DefaultPreviewRows = 25

// DefaultRunTimeout bounds a single reconciliation.
const DefaultRunTimeout = 2 * time.Minute

// ServiceOptions configures a Service. Zero values fall back to defaults.
type ServiceOptions struct {
	Engine        Options
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
	ReportName    string
	PreviewRows   int
}

// Service runs reconciliations for the HTTP host: it admits requests through
// the limiter, stages inputs and the report, and audits every run.
type Service struct {
	engine      *Engine
	limiter     *Limiter
	store       *storage.Store
	audit       AuditStore
	reportName  string
	previewRows int
	timeout     time.Duration
}

// NewService creates a Service. A nil audit discards run records.
func NewService(store *storage.Store, audit AuditStore, opts ServiceOptions) *Service {
	if audit == nil {
		audit = NopAudit{}
	}
	if opts.ReportName == "" {
		opts.ReportName = DefaultReportName
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRunTimeout
	}
	return &Service{
		engine:      NewEngine(opts.Engine),
		limiter:     NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		store:       store,
		audit:       audit,
		reportName:  opts.ReportName,
		previewRows: opts.PreviewRows,
		timeout:     opts.Timeout,
	}
}

// Upload is one uploaded payroll file.
type Upload struct {
	Name string
	Data []byte
}

// Report describes a generated report waiting to be downloaded.
type Report struct {
	ID        string       `json:"id"`
	FileName  string       `json:"fileName"`
	Format    table.Format `json:"format"`
	Size      int          `json:"size"`
	Summary   Summary      `json:"summary"`
	Columns   []string     `json:"columns"`
	Preview   [][]string   `json:"preview"`
	TotalRows int          `json:"totalRows"`
}

// Truncated reports whether Preview shows fewer rows than the report holds.
func (r *Report) Truncated() bool {
	return len(r.Preview) < r.TotalRows
}

// Reconcile compares oldFile against newFile and stages the report for
// download. On failure nothing is left on disk.
func (s *Service) Reconcile(ctx context.Context, oldFile, newFile Upload) (report *Report, err error) {
	if len(oldFile.Data) == 0 || len(newFile.Data) == 0 {
		return nil, ErrMissingUpload
	}

	start := time.Now()
	client := ClientInfoFrom(ctx)
	run := RunRecord{
		OldFile:   safeName(oldFile.Name),
		NewFile:   safeName(newFile.Name),
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: start,
	}
	log := logging.WithFields(ctx, "old_file", run.OldFile, "new_file", run.NewFile)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("reconciliation rejected", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	stage, err := s.store.Create()
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	run.ID = stage.ID()
	log = log.With("report_id", run.ID)

	defer func() {
		run.Duration = time.Since(start)
		if err != nil {
			run.Status = RunFailed
			run.ErrorCode = MapError(err).Code
			if rmErr := stage.Remove(); rmErr != nil {
				log.Error("failed to remove stage", "error", rmErr)
			}
			if IsInputError(err) {
				log.Info("reconciliation rejected input", "error", err, "code", run.ErrorCode)
			} else {
				log.Error("reconciliation failed", "error", err, "code", run.ErrorCode)
			}
		} else {
			run.Status = RunSucceeded
			run.Summary = &report.Summary
			log.Info("reconciliation completed",
				"matched", report.Summary.Matched,
				"rows", report.TotalRows,
				"duration_ms", run.Duration.Milliseconds(),
			)
		}
		if auditErr := s.audit.RecordRun(context.WithoutCancel(ctx), run); auditErr != nil {
			log.Error("failed to record run", "error", auditErr)
		}
	}()

	if _, err := stage.Put(InputOld+"_"+run.OldFile, oldFile.Data); err != nil {
		return nil, err
	}
	if _, err := stage.Put(InputNew+"_"+run.NewFile, newFile.Data); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.engine.Run(oldFile.Data, newFile.Data)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileName := s.reportName + res.Format.Extension()
	if _, err := stage.Put(fileName, res.Data); err != nil {
		return nil, err
	}

	return &Report{
		ID:        stage.ID(),
		FileName:  fileName,
		Format:    res.Format,
		Size:      len(res.Data),
		Summary:   res.Summary,
		Columns:   res.Report.Columns,
		Preview:   preview(res.Report, s.previewRows),
		TotalRows: res.Report.Len(),
	}, nil
}

// OpenReport opens a staged report for download. Call release when done.
func (s *Service) OpenReport(id, fileName string) (*os.File, func(), error) {
	return s.store.Open(id, fileName)
}

// DiscardReport deletes a staged report and its inputs.
func (s *Service) DiscardReport(id string) error {
	return s.store.Remove(id)
}

// RecentRuns returns the latest audited runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	return s.audit.RecentRuns(ctx, limit)
}

// LimiterStatus returns the concurrency limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForDrain blocks until in-flight reconciliations finish or ctx is done.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func preview(t *table.Table, limit int) [][]string {
	n := min(t.Len(), limit)
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rec := t.Record(i)
		cells := make([]string, len(rec))
		for j, v := range rec {
			cells[j] = v.String()
		}
		rows[i] = cells
	}
	return rows
}

// safeName reduces a client supplied file name to a plain base name.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}
