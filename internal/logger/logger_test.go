package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestVerboseGating(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		log      func(l *Logger)
		expected string
		silent   bool
	}{
		{
			name:   "debug hidden when quiet",
			log:    func(l *Logger) { l.Debug("hidden %d", 1) },
			silent: true,
		},
		{
			name:     "debug shown when verbose",
			verbose:  true,
			log:      func(l *Logger) { l.Debug("shown %d", 2) },
			expected: "shown 2",
		},
		{
			name:   "info hidden when quiet",
			log:    func(l *Logger) { l.Info("quiet") },
			silent: true,
		},
		{
			name:     "warn always shown",
			log:      func(l *Logger) { l.Warn("careful %s", "now") },
			expected: "careful now",
		},
		{
			name:     "error always shown",
			log:      func(l *Logger) { l.Error("broken") },
			expected: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			verbose := tt.verbose
			l := NewWithWriter("test", func() bool { return verbose }, &buf)

			tt.log(l)

			out := buf.String()
			if tt.silent {
				if out != "" {
					t.Errorf("expected no output, got %q", out)
				}
				return
			}
			if !strings.Contains(out, tt.expected) {
				t.Errorf("expected output to contain %q, got %q", tt.expected, out)
			}
			if !strings.Contains(out, "[test]") {
				t.Errorf("expected component name in output, got %q", out)
			}
		})
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("root", func() bool { return true }, &buf)

	child := l.WithComponent("backend")
	if child.Component() != "backend" {
		t.Fatalf("expected component backend, got %s", child.Component())
	}

	child.InfoWithFields("request done", []Field{F("status", 200), Error(errors.New("boom"))})

	out := buf.String()
	for _, want := range []string{"[backend]", "request done", "status", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "root.backend") {
		t.Errorf("component should replace the parent name, got %q", out)
	}
}

func TestNilAndNopLoggers(t *testing.T) {
	var l *Logger
	l.Debug("ignored")
	l.Warn("ignored")
	if err := l.Sync(); err != nil {
		t.Errorf("nil logger Sync returned %v", err)
	}

	n := Nop()
	n.Error("discarded")
	n.WithComponent("x").Warn("discarded")
}
