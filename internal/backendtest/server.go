// Package backendtest runs an in-process stand-in for the gap analysis
// backend. Responses can be scripted per route and calls are counted.
package backendtest

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yildizm/GapReport/internal/backend"
)

// Route names one backend endpoint
type Route string

const (
	RouteAnalyze  Route = "analyze"
	RouteView     Route = "view"
	RouteDownload Route = "download"
	RouteHealth   Route = "health"
)

// XLSXMagic starts every spreadsheet the server returns
var XLSXMagic = []byte("PK\x03\x04")

// Response is a scripted reply. Zero Status means 200.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Headers     map[string]string
	Delay       time.Duration
}

// JSONError builds the FastAPI style error reply {"detail": ...}
func JSONError(status int, detail string) Response {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	return Response{Status: status, ContentType: "application/json", Body: body}
}

// Upload is the file received by the last analyze call
type Upload struct {
	Filename string
	Data     []byte
}

// Server is a fake backend listening on a loopback address
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	findings []json.RawMessage
	scripts  map[Route][]Response
	calls    map[Route]int
	upload   Upload
	format   map[Route]backend.FormatRequest
}

// New starts a server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		scripts: make(map[Route][]Response),
		calls:   make(map[Route]int),
		format:  make(map[Route]backend.FormatRequest),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.wrap(RouteHealth, s.handleHealth))
	r.Post("/analyze/", s.wrap(RouteAnalyze, s.handleAnalyze))
	r.Post("/format/view/", s.wrap(RouteView, s.handleView))
	r.Post("/format/download/", s.wrap(RouteDownload, s.handleDownload))

	return r
}

// SetFindings sets what a successful analyze returns
func (s *Server) SetFindings(findings ...json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append([]json.RawMessage(nil), findings...)
}

// Script queues responses for route. Once they are used up the route
// goes back to its default behavior.
func (s *Server) Script(route Route, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[route] = append(s.scripts[route], responses...)
}

// Calls returns how many requests route has received
func (s *Server) Calls(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastUpload returns the file of the most recent analyze call
func (s *Server) LastUpload() Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload
}

// LastFormatRequest returns the body of the most recent view or download call
func (s *Server) LastFormatRequest(route Route) backend.FormatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format[route]
}

// Client returns a backend client pointed at the server
func (s *Server) Client(t testing.TB, opts ...backend.Option) *backend.Client {
	t.Helper()

	cfg := backend.DefaultConfig()
	cfg.BaseURL = s.URL
	cfg.RetryDelay = time.Millisecond
	client, err := backend.New(cfg, append([]backend.Option{backend.WithHTTPClient(s.Server.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("backendtest: %v", err)
	}
	return client
}

type handlerFunc func(w http.ResponseWriter, r *http.Request)

// wrap counts the call and serves a scripted reply when one is queued
func (s *Server) wrap(route Route, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		var scripted *Response
		if queue := s.scripts[route]; len(queue) > 0 {
			scripted = &queue[0]
			s.scripts[route] = queue[1:]
		}
		s.mu.Unlock()

		if scripted == nil {
			h(w, r)
			return
		}

		if scripted.Delay > 0 {
			select {
			case <-time.After(scripted.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if len(scripted.Body) == 0 && scripted.Status == 0 {
			h(w, r)
			return
		}
		writeResponse(w, *scripted)
	}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "PCI Compliance Backend is running"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{
				{"loc": []string{"body", "file"}, "msg": "Field required", "type": "missing"},
			},
		})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	s.upload = Upload{Filename: header.Filename, Data: data}
	findings := append([]json.RawMessage{}, s.findings...)
	s.mu.Unlock()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xls":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "Invalid file type. Please upload an Excel file (.xlsx or .xls).",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename": header.Filename,
		"report":   findings,
	})
}

func (s *Server) decodeFormat(route Route, w http.ResponseWriter, r *http.Request) (backend.FormatRequest, bool) {
	var req backend.FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return req, false
	}

	s.mu.Lock()
	s.format[route] = req
	s.mu.Unlock()
	return req, true
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFormat(RouteView, w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, RenderHTML(req))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFormat(RouteDownload, w, r)
	if !ok {
		return
	}

	body := append([]byte(nil), XLSXMagic...)
	body = append(body, fmt.Sprintf("findings=%d;source=%s", len(req.Findings), req.OriginalFilename)...)

	w.Header().Set("Content-Type", backend.MediaTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="action_report.xlsx"`)
	_, _ = w.Write(body)
}

// RenderHTML builds the report fragment the server returns for req
func RenderHTML(req backend.FormatRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>PCI DSS Gap Analysis Report</h1><p><strong>Source File:</strong> %s</p>",
		html.EscapeString(req.OriginalFilename))

	for i, raw := range req.Findings {
		var f map[string]interface{}
		if err := json.Unmarshal(raw, &f); err != nil {
			f = map[string]interface{}{"Title": string(raw)}
		}
		fmt.Fprintf(&b, `<div class="finding-card"><h2>Finding #%d: %s</h2><p><strong>Category:</strong> %s</p></div>`,
			i+1, html.EscapeString(fmt.Sprint(f["Title"])), html.EscapeString(fmt.Sprint(f["Category"])))
	}
	return b.String()
}
