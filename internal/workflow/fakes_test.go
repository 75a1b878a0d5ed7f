package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/history"
	"github.com/yildizm/GapReport/internal/kv"
	"github.com/yildizm/GapReport/internal/logger"
)

// gate holds a fake call until the test releases it
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

type fakeBackend struct {
	mu            sync.Mutex
	analyzeCalls  int
	viewCalls     int
	downloadCalls int

	analyze  func(ctx context.Context, name string) ([]backend.Finding, error)
	view     func(ctx context.Context, req backend.FormatRequest) (*backend.Document, error)
	download func(ctx context.Context, req backend.FormatRequest) (*backend.Document, error)
}

func (f *fakeBackend) Analyze(ctx context.Context, name string, _ []byte) ([]backend.Finding, error) {
	f.mu.Lock()
	f.analyzeCalls++
	f.mu.Unlock()
	if f.analyze == nil {
		return findingsN(2), nil
	}
	return f.analyze(ctx, name)
}

func (f *fakeBackend) FormatView(ctx context.Context, req backend.FormatRequest) (*backend.Document, error) {
	f.mu.Lock()
	f.viewCalls++
	f.mu.Unlock()
	if f.view == nil {
		return &backend.Document{MediaType: backend.MediaTypeHTML, Data: []byte("<h1>report</h1>")}, nil
	}
	return f.view(ctx, req)
}

func (f *fakeBackend) FormatDownload(ctx context.Context, req backend.FormatRequest) (*backend.Document, error) {
	f.mu.Lock()
	f.downloadCalls++
	f.mu.Unlock()
	if f.download == nil {
		return &backend.Document{MediaType: backend.MediaTypeXLSX, Data: []byte("PK\x03\x04")}, nil
	}
	return f.download(ctx, req)
}

func (f *fakeBackend) counts() (analyze, view, download int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls, f.viewCalls, f.downloadCalls
}

type savedFile struct {
	name        string
	contentType string
	data        []byte
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedFile
	err   error

	// hold blocks Save until released; the save then completes even if
	// ctx was cancelled meanwhile, and ctxErr records what it saw
	hold   *gate
	ctxErr error
}

func (s *fakeSaver) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.hold != nil {
		s.hold.wait()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = ctx.Err()
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, savedFile{name: name, contentType: contentType, data: data})
	return "/downloads/" + name, nil
}

func (s *fakeSaver) files() []savedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedFile(nil), s.saved...)
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, string, time.Time) (history.Entry, error) {
	return history.Entry{}, errors.New("disk full")
}

func (failingHistory) List(context.Context) ([]history.Entry, error) {
	return nil, errors.New("disk full")
}

// stepClock returns times one minute apart
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func findingsN(n int) []backend.Finding {
	out := make([]backend.Finding, n)
	for i := range out {
		out[i] = backend.Finding(fmt.Sprintf(`{"Title":"finding %d"}`, i+1))
	}
	return out
}

type testEnv struct {
	ctrl    *Controller
	rec     *Recorder
	backend *fakeBackend
	saver   *fakeSaver
	history *history.Log
}

func newTestEnv(t *testing.T, fb *fakeBackend, mutate ...func(*Options)) *testEnv {
	t.Helper()
	if fb == nil {
		fb = &fakeBackend{}
	}

	env := &testEnv{
		rec:     NewRecorder(DefaultLabels()),
		backend: fb,
		saver:   &fakeSaver{},
		history: history.New(kv.NewMemory(), "", 0),
	}
	opts := Options{
		Backend:           fb,
		Saver:             env.saver,
		History:           env.history,
		Presenter:         env.rec,
		Logger:            logger.Nop(),
		AllowedExtensions: []string{".xlsx", ".xls"},
		Clock:             stepClock(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	ctrl, err := NewController(opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	env.ctrl = ctrl
	return env
}

func (e *testEnv) analyze(t *testing.T, name string) {
	t.Helper()
	if err := e.ctrl.StartAnalysis(context.Background(), SourceFile{Name: name, Data: []byte("sheet")}); err != nil {
		t.Fatalf("StartAnalysis(%s): %v", name, err)
	}
}
