// internal/web/handlers_test.go
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jbossmon/internal/config"
	"jbossmon/internal/jboss"
	"jbossmon/internal/monitor"
	"jbossmon/internal/reports"
	"jbossmon/internal/store"
)

type stubExecutor struct{}

func (stubExecutor) Check(ctx context.Context, target jboss.Target, creds store.Credentials) (*store.CheckResult, error) {
	return &store.CheckResult{
		InstanceStatus: store.StatusUp,
		LastCheck:      time.Now(),
		Datasources:    []store.Datasource{},
		Deployments:    []store.Deployment{},
	}, nil
}

type testServer struct {
	server *Server
	store  store.Store
	engine *reports.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	pool := monitor.NewPool(stubExecutor{}, nil, 2, time.Second)
	t.Cleanup(pool.Stop)
	agg := monitor.NewAggregator(s, pool, 5*time.Second)
	engine := reports.NewEngine(s, agg, nil, 20, "pdf")

	cfg := config.Default()
	cfg.Prometheus.Enabled = false

	return &testServer{
		server: NewServer(cfg, s, agg, engine, nil),
		store:  s,
		engine: engine,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope, "data")
	require.NoError(t, json.Unmarshal(envelope["data"], out))
}

func TestHostEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/hosts/production", HostRequest{
		Host: "app01", Port: 9990, Instance: "node1", AddedBy: "tester",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created store.Host
	decodeData(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, store.EnvProduction, created.Environment)

	// Duplicate registration is a conflict.
	w = ts.do(t, http.MethodPost, "/api/hosts/production", HostRequest{
		Host: "app01", Port: 9990, Instance: "node1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown environment is rejected before any store access.
	w = ts.do(t, http.MethodPost, "/api/hosts/staging", HostRequest{
		Host: "app01", Port: 9990, Instance: "node1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/hosts/production", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hosts []store.Host
	decodeData(t, w, &hosts)
	assert.Len(t, hosts, 1)

	w = ts.do(t, http.MethodDelete, "/api/hosts/production/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/hosts/production/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/hosts/production/bulk", BulkRequest{
		Hosts:   "app01 9990 node1\nbad-line\napp01 9990 node1",
		AddedBy: "tester",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp BulkResponse
	decodeData(t, w, &resp)
	assert.Len(t, resp.Added, 1)
	require.Len(t, resp.InvalidLines, 2)
	assert.Equal(t, 2, resp.InvalidLines[0].Line)
	assert.Equal(t, 3, resp.InvalidLines[1].Line)
	assert.Empty(t, resp.Duplicates)

	// Re-running the same batch only yields store-level duplicates.
	w = ts.do(t, http.MethodPost, "/api/hosts/production/bulk", BulkRequest{
		Hosts: "app01 9990 node1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	decodeData(t, w, &resp)
	assert.Empty(t, resp.Added)
	assert.Equal(t, []string{"app01:9990:node1"}, resp.Duplicates)
}

func TestStatusAndCheckEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/hosts/production", HostRequest{
		Host: "app01", Port: 9990, Instance: "node1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Checks require credentials on file.
	w = ts.do(t, http.MethodPost, "/api/status/production/check", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = ts.do(t, http.MethodPut, "/api/credentials/production", CredentialsRequest{
		Username: "monitor", Password: "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/status/production/check", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/status/production", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []store.HostStatus
	decodeData(t, w, &statuses)
	require.Len(t, statuses, 1)
	require.NotNil(t, statuses[0].Status)
	assert.Equal(t, store.StatusUp, statuses[0].Status.InstanceStatus)
}

func TestCredentialsNeverEchoed(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/credentials/production", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"configured":false`)

	w = ts.do(t, http.MethodPut, "/api/credentials/production", CredentialsRequest{
		Username: "monitor", Password: "topsecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/credentials/production", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"configured":true`)
	assert.Contains(t, w.Body.String(), "monitor")
	assert.NotContains(t, w.Body.String(), "topsecret")
}

func TestReportEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/hosts/production", HostRequest{
		Host: "app01", Port: 9990, Instance: "node1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = ts.do(t, http.MethodPut, "/api/credentials/production", CredentialsRequest{
		Username: "monitor", Password: "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reports/generate/production", GenerateRequest{Format: "csv"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var report store.Report
	decodeData(t, w, &report)
	assert.Equal(t, store.JobGenerating, report.Status)

	ts.engine.Wait()

	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &report)
	assert.Equal(t, store.JobCompleted, report.Status)

	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), report.Filename)
	assert.Contains(t, w.Body.String(), "app01")

	w = ts.do(t, http.MethodPost, "/api/reports/generate/production", GenerateRequest{Format: "docx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/reports/"+report.ID+"/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadWhileGenerating(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	report := &store.Report{Environment: store.EnvProduction, Format: "pdf", Filename: "pending.pdf"}
	require.NoError(t, ts.store.CreateReport(ctx, report))

	w := ts.do(t, http.MethodGet, "/api/reports/"+report.ID+"/download", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCleanupEndpointMaxReports(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		report := &store.Report{
			Environment: store.EnvProduction,
			Format:      "pdf",
			CreatedAt:   time.Now().Add(time.Duration(i-3) * time.Hour),
		}
		require.NoError(t, ts.store.CreateReport(ctx, report))
		require.NoError(t, ts.store.CompleteReport(ctx, report.ID, []byte("pdf"), nil))
	}

	// Within the configured cap; no body means no override.
	w := ts.do(t, http.MethodPost, "/api/admin/cleanup?environment=production", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":0`)

	w = ts.do(t, http.MethodPost, "/api/admin/cleanup?environment=production", CleanupRequest{MaxReports: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":2`)

	all, err := ts.store.GetReports(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	w = ts.do(t, http.MethodPost, "/api/admin/cleanup", CleanupRequest{MaxReports: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/admin/cleanup?environment=staging", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
