package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/PayrollRecon/internal/config"
	"github.com/JonMunkholm/PayrollRecon/internal/core"
	"github.com/JonMunkholm/PayrollRecon/internal/storage"
	"github.com/JonMunkholm/PayrollRecon/internal/table"
)

type testServer struct {
	*Server
	store *storage.Store
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	cfg.Storage.Dir = t.TempDir()
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	store, err := storage.New(cfg.Storage.Dir)
	require.NoError(t, err)

	svc := core.NewService(store, nil, core.ServiceOptions{
		Engine:        cfg.EngineOptions(),
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		ReportName:    cfg.Reconcile.ReportName,
	})

	srv := NewServer(cfg, svc)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) stages(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(ts.store.Root())
	require.NoError(t, err)
	return len(entries)
}

// payrollCSV renders rows of (number, name, net salary) with the full column set.
func payrollCSV(t *testing.T, rows ...[3]string) []byte {
	t.Helper()
	tbl := table.MustNew(core.RequiredColumns...)
	for _, r := range rows {
		require.NoError(t, tbl.Append(table.Row{
			core.ColEmployeeNumber: table.ParseValue(r[0]),
			core.ColEmployeeName:   table.ParseValue(r[1]),
			core.ColSupplierID:     table.ParseValue("S" + r[0]),
			core.ColGrossSalary:    table.ParseValue(r[2]),
			core.ColDeductions:     table.ParseValue("0"),
			core.ColNetSalary:      table.ParseValue(r[2]),
		}))
	}
	data, err := table.Serialize(tbl, table.FormatCSV)
	require.NoError(t, err)
	return data
}

type formFile struct {
	field, name string
	data        []byte
}

func uploadRequest(t *testing.T, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		if f.name == "" {
			// Browsers send an unselected file input as an empty part.
			require.NoError(t, mw.WriteField(f.field, ""))
			continue
		}
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="old_file"`)
	assert.Contains(t, rec.Body.String(), `name="new_file"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestUploadAndDownload(t *testing.T) {
	ts := newTestServer(t, nil)

	req := uploadRequest(t,
		formFile{fieldOldFile, "march.csv", payrollCSV(t, [3]string{"1", "Alice", "1000"})},
		formFile{fieldNewFile, "april.csv", payrollCSV(t, [3]string{"1", "Alice", "1200"})},
	)
	req.Header.Set("Accept", "application/json")
	rec := ts.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Payroll Comparison.csv", resp.FileName)
	assert.Equal(t, 1, resp.Summary.Increases)
	assert.Equal(t, 1, ts.stages(t))

	rec = ts.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Payroll Comparison.csv")

	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t,
		"Employee Number,Employee Name,Supplier ID,Gross Salary,Deductions,Net Salary (Old),Net Salary,Increase/Decrease,Difference\n"+
			"1,Alice,S1,1200,0,1000,1200,200,Increase\n",
		string(body))

	// Staged inputs and report are gone after the download.
	assert.Equal(t, 0, ts.stages(t))

	rec = ts.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "File not found. Please process files first.")
}

func TestUpload_HTMLResultPage(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t,
		formFile{fieldOldFile, "old.csv", payrollCSV(t, [3]string{"1", "Alice", "1000"})},
		formFile{fieldNewFile, "new.csv", payrollCSV(t, [3]string{"1", "Alice", "1000"})},
	))
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.Contains(t, page, "Report generated successfully!")
	assert.Contains(t, page, "/download/")
	assert.Contains(t, page, "No Change")
	assert.Contains(t, page, "Net Salary (Old)")
}

func TestUpload_DownloadWrongNameStillCleansUp(t *testing.T) {
	ts := newTestServer(t, nil)

	req := uploadRequest(t,
		formFile{fieldOldFile, "old.csv", payrollCSV(t, [3]string{"1", "A", "1"})},
		formFile{fieldNewFile, "new.csv", payrollCSV(t, [3]string{"1", "A", "2"})},
	)
	req.Header.Set("Accept", "application/json")
	rec := ts.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/download/"+resp.ReportID+"/other.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, ts.stages(t))
}

func TestUpload_Errors(t *testing.T) {
	good := payrollCSV(t, [3]string{"1", "A", "1"})
	missingDeductions := []byte("Employee Number,Net Salary,Employee Name,Supplier ID,Gross Salary\n1,1,A,S1,1\n")

	tests := []struct {
		name       string
		files      []formFile
		wantStatus int
		wantCode   string
		wantText   string
	}{
		{
			name:       "missing field",
			files:      []formFile{{fieldOldFile, "old.csv", good}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
			wantText:   "Please upload both old and new payroll files.",
		},
		{
			name:       "no file selected",
			files:      []formFile{{fieldOldFile, "old.csv", good}, {fieldNewFile, "", nil}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
			wantText:   "No file selected.",
		},
		{
			name:       "missing column",
			files:      []formFile{{fieldOldFile, "old.csv", good}, {fieldNewFile, "new.csv", missingDeductions}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VAL004",
			wantText:   "Deductions",
		},
		{
			name:       "no matching employees",
			files:      []formFile{{fieldOldFile, "old.csv", good}, {fieldNewFile, "new.csv", payrollCSV(t, [3]string{"2", "B", "1"})}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "REC001",
		},
		{
			name:       "unreadable file",
			files:      []formFile{{fieldOldFile, "old.csv", []byte("A,B\n\xff\xfe,1\n")}, {fieldNewFile, "new.csv", good}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE003",
			wantText:   "old file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			req := uploadRequest(t, tt.files...)
			req.Header.Set("Accept", "application/json")
			rec := ts.do(req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Message, tt.wantText)
			assert.Equal(t, 0, ts.stages(t))
		})
	}
}

func TestUpload_ErrorRendersForm(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, formFile{fieldNewFile, "new.csv", []byte("x")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload both old and new payroll files.")
	assert.Contains(t, rec.Body.String(), `name="old_file"`)
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 16 })

	req := uploadRequest(t,
		formFile{fieldOldFile, "old.csv", payrollCSV(t, [3]string{"1", "A", "1"})},
		formFile{fieldNewFile, "new.csv", payrollCSV(t, [3]string{"1", "A", "1"})},
	)
	req.Header.Set("Accept", "application/json")
	rec := ts.do(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE001")
}

func TestDownload_UnknownReport(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{
		"/download/00000000-0000-0000-0000-000000000000/Payroll%20Comparison.xlsx",
		"/download/not-an-id/report.csv",
	} {
		rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "File not found. Please process files first.", path)
	}
}

func TestHealthAndRuns(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Limiter.MaxConcurrent)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestAPIRequiresKey(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}
