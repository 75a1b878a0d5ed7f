package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/GapReport/internal/monitor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.RetryDelay = time.Millisecond
	for _, m := range mutate {
		m(cfg)
	}

	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config uses defaults", config: nil},
		{name: "ftp scheme", config: &Config{BaseURL: "ftp://x"}, wantErr: true},
		{name: "empty base url", config: &Config{}, wantErr: true},
		{name: "negative retries", config: &Config{BaseURL: "http://x", MaxRetries: -1}, wantErr: true},
		{name: "partial config gets defaults", config: &Config{BaseURL: "http://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultAnalyzePath, client.config.AnalyzePath)
			assert.Equal(t, MediaTypeXLSX, client.config.DownloadMediaType)
		})
	}
}

func TestAnalyzeUploadsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze/", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "report.xlsx", header.Filename)
		assert.Equal(t, "sheet-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Title":"a"},{"Title":"b"}]`))
	})

	findings, err := client.Analyze(context.Background(), "report.xlsx", []byte("sheet-bytes"))
	require.NoError(t, err)
	assert.Len(t, findings, 2)
	assert.JSONEq(t, `{"Title":"a"}`, string(findings[0]))
}

func TestAnalyzeResponseShapes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		count       int
		kind        Kind
	}{
		{name: "bare array", contentType: "application/json", body: `[{"a":1}]`, count: 1},
		{name: "empty array", contentType: "application/json", body: `[]`, count: 0},
		{name: "wrapped report", contentType: "application/json; charset=utf-8", body: `{"filename":"x.xlsx","report":[{"a":1},{"a":2}]}`, count: 2},
		{name: "findings field", contentType: "application/json", body: `{"findings":[]}`, count: 0},
		{name: "report as text block", contentType: "application/json", body: `{"report":"Title: x"}`, count: 1},
		{name: "null body", contentType: "application/json", body: `null`, count: 0},
		{name: "html content type", contentType: "text/html", body: `<h1>hi</h1>`, kind: KindContentType},
		{name: "object without findings", contentType: "application/json", body: `{"status":"ok"}`, kind: KindContentType},
		{name: "report of wrong type", contentType: "application/json", body: `{"report":42}`, kind: KindContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			})

			findings, err := client.Analyze(context.Background(), "f.xlsx", nil)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, findings)
			assert.Len(t, findings, tt.count)
		})
	}
}

func TestAnalyzeServerErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"bad file"}`))
	})

	_, err := client.Analyze(context.Background(), "report.xlsx", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServer))
	assert.False(t, errors.Is(err, ErrTransport))

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
	assert.Equal(t, "bad file", be.Diagnostic())
	assert.Equal(t, "bad file", DiagnosticOf(err))
}

func TestAnalyzeEmptyNameIsPrecondition(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.Analyze(context.Background(), "  ", []byte("x"))
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Zero(t, calls.Load())
}

func TestFormatView(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/format/view/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req FormatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "report.xlsx", req.OriginalFilename)
		assert.Len(t, req.Findings, 2)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Report</h1>"))
	})

	doc, err := client.FormatView(context.Background(), FormatRequest{
		Findings:         []Finding{Finding(`{"a":1}`), Finding(`{"a":2}`)},
		OriginalFilename: "report.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/html", doc.MediaType)
	assert.Equal(t, "<h1>Report</h1>", string(doc.Data))
}

func TestFormatDownloadMediaTypeMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})

	_, err := client.FormatDownload(context.Background(), FormatRequest{OriginalFilename: "r.xlsx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContentType))
	assert.Contains(t, DiagnosticOf(err), MediaTypeXLSX)
	assert.Contains(t, DiagnosticOf(err), "text/html")
}

func TestFormatDownloadFilename(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", MediaTypeXLSX)
		w.Header().Set("Content-Disposition", `attachment; filename="PCI_DSS_Action_Report_r.xlsx"`)
		_, _ = w.Write([]byte("PK\x03\x04"))
	})

	doc, err := client.FormatDownload(context.Background(), FormatRequest{OriginalFilename: "r.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "PCI_DSS_Action_Report_r.xlsx", doc.Filename)
	assert.Equal(t, []byte("PK\x03\x04"), doc.Data)
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}, func(c *Config) { c.MaxRetries = 2 })

	findings, err := client.Analyze(context.Background(), "r.xlsx", nil)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(c *Config) { c.MaxRetries = 3 })

	_, err := client.Analyze(context.Background(), "r.xlsx", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, DiagnosticOf(err), "500")
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := New(&Config{BaseURL: url})
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), "r.xlsx", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Analyze(ctx, "r.xlsx", nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
		assert.True(t, errors.Is(err, ErrTransport))
	case <-time.After(5 * time.Second):
		t.Fatal("Analyze did not return after cancellation")
	}
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":"PCI Compliance Backend is running"}`))
	}, func(c *Config) { c.APIKey = "secret" })

	status, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PCI Compliance Backend is running", status.Status)
}

func TestMetricsRecordRequests(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"Title":"a"}]`))
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 1

	requests := monitor.NewRequests()
	client, err := New(cfg, WithMetrics(requests))
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), "r.xlsx", []byte("sheet"))
	require.NoError(t, err)
	_, err = client.HealthCheck(context.Background())
	require.Error(t, err)

	snap := requests.Snapshot()
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, monitor.OperationStats{Operation: opAnalyze, Count: 1, Retries: 1}, trimTimes(snap.Operations[0]))
	assert.Equal(t, monitor.OperationStats{Operation: opHealth, Count: 1, Errors: 1}, trimTimes(snap.Operations[1]))
	assert.Positive(t, snap.BytesSent)
	assert.Equal(t, int64(len(`[{"Title":"a"}]`)), snap.BytesReceived)
}

func trimTimes(s monitor.OperationStats) monitor.OperationStats {
	s.Total, s.Min, s.Max, s.Avg = 0, 0, 0, 0
	return s
}
