package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	counter := NewCounter("test_counter")

	if counter.Get() != 0 {
		t.Errorf("Expected initial value 0, got %d", counter.Get())
	}

	counter.Inc()
	counter.Add(5)
	if counter.Get() != 6 {
		t.Errorf("Expected value 6, got %d", counter.Get())
	}

	counter.Reset()
	if counter.Get() != 0 {
		t.Errorf("Expected value 0 after Reset(), got %d", counter.Get())
	}

	if counter.Name() != "test_counter" {
		t.Errorf("Expected name 'test_counter', got %s", counter.Name())
	}
}

func TestGaugePeak(t *testing.T) {
	gauge := NewGauge("in_flight")

	gauge.Inc()
	gauge.Inc()
	gauge.Dec()
	gauge.Inc()
	gauge.Dec()
	gauge.Dec()

	if gauge.Get() != 0 {
		t.Errorf("Expected value 0, got %d", gauge.Get())
	}
	if gauge.Peak() != 2 {
		t.Errorf("Expected peak 2, got %d", gauge.Peak())
	}
}

func TestTimer(t *testing.T) {
	timer := NewTimer("test_timer")

	if timer.MinTime() != 0 {
		t.Errorf("Expected min 0 with no measurements, got %v", timer.MinTime())
	}
	if timer.AvgTime() != 0 {
		t.Errorf("Expected avg 0 with no measurements, got %v", timer.AvgTime())
	}

	timer.Record(10 * time.Millisecond)
	timer.Record(30 * time.Millisecond)
	timer.Record(20 * time.Millisecond)

	if timer.Count() != 3 {
		t.Errorf("Expected count 3, got %d", timer.Count())
	}
	if timer.MinTime() != 10*time.Millisecond {
		t.Errorf("Expected min 10ms, got %v", timer.MinTime())
	}
	if timer.MaxTime() != 30*time.Millisecond {
		t.Errorf("Expected max 30ms, got %v", timer.MaxTime())
	}
	if timer.AvgTime() != 20*time.Millisecond {
		t.Errorf("Expected avg 20ms, got %v", timer.AvgTime())
	}
	if timer.TotalTime() != 60*time.Millisecond {
		t.Errorf("Expected total 60ms, got %v", timer.TotalTime())
	}

	timer.Reset()
	if timer.Count() != 0 || timer.MaxTime() != 0 || timer.MinTime() != 0 {
		t.Errorf("Expected empty timer after Reset(), got count=%d max=%v", timer.Count(), timer.MaxTime())
	}
}

func TestRequestsTrack(t *testing.T) {
	r := NewRequests()
	failure := errors.New("boom")

	if err := r.Track("analyze", func() error { return nil }); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if err := r.Track("format view", func() error { return failure }); !errors.Is(err, failure) {
		t.Fatalf("Expected error to pass through, got %v", err)
	}
	_ = r.Track("analyze", func() error { return nil })
	r.RecordRetry("analyze")
	r.RecordBytes(2048, 100)

	snap := r.Snapshot()
	if len(snap.Operations) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(snap.Operations))
	}

	analyze := snap.Operations[0]
	if analyze.Operation != "analyze" || analyze.Count != 2 || analyze.Errors != 0 || analyze.Retries != 1 {
		t.Errorf("Unexpected analyze stats: %+v", analyze)
	}
	view := snap.Operations[1]
	if view.Operation != "format view" || view.Count != 1 || view.Errors != 1 {
		t.Errorf("Unexpected view stats: %+v", view)
	}

	calls, failures := snap.Totals()
	if calls != 3 || failures != 1 {
		t.Errorf("Expected 3 calls and 1 failure, got %d and %d", calls, failures)
	}
	if snap.BytesSent != 2048 || snap.BytesReceived != 100 {
		t.Errorf("Unexpected byte totals: sent=%d received=%d", snap.BytesSent, snap.BytesReceived)
	}
	if snap.InFlight != 0 {
		t.Errorf("Expected nothing in flight, got %d", snap.InFlight)
	}
}

func TestRequestsConcurrent(t *testing.T) {
	r := NewRequests()
	release := make(chan struct{})

	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Track("analyze", func() error {
				started.Done()
				<-release
				return nil
			})
		}()
	}

	started.Wait()
	if got := r.Snapshot().InFlight; got != 4 {
		t.Errorf("Expected 4 in flight, got %d", got)
	}
	close(release)
	wg.Wait()

	snap := r.Snapshot()
	if snap.PeakInFlight != 4 {
		t.Errorf("Expected peak 4, got %d", snap.PeakInFlight)
	}
	if snap.Operations[0].Count != 4 {
		t.Errorf("Expected 4 calls, got %d", snap.Operations[0].Count)
	}
}

func TestWriteReport(t *testing.T) {
	r := NewRequests()
	_ = r.Track("analyze", func() error { return nil })
	_ = r.Track("format download", func() error { return errors.New("gone") })
	r.RecordBytes(3*1024*1024, 512)
	snap := r.Snapshot()

	tests := []struct {
		format ReportFormat
		want   []string
	}{
		{ReportFormatText, []string{"Backend Requests", "Calls: 2 (1 failed)", "3.0 MiB sent", "512 B received", "format download", "1 failed"}},
		{ReportFormatMarkdown, []string{"## Backend Requests", "| analyze | 1 | 0 | 0 |", "| format download | 1 | 1 | 0 |"}},
		{ReportFormatCSV, []string{"operation,count,errors,retries,avg_ns,max_ns", "format download,1,1,0,"}},
		{"unknown", []string{"Backend Requests"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReport(&buf, snap, tt.format); err != nil {
				t.Fatalf("WriteReport failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, buf.String())
				}
			}
		})
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, snap, ReportFormatJSON); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	if len(decoded.Operations) != 2 || decoded.BytesSent != 3*1024*1024 {
		t.Errorf("Unexpected decoded snapshot: %+v", decoded)
	}
}

func TestByteSize(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		1536:        "1.5 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := byteSize(n); got != want {
			t.Errorf("byteSize(%d) = %q, want %q", n, got, want)
		}
	}
}
