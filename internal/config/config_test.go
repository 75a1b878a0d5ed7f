package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}
	if cfg.Backend.AnalyzePath != "/analyze/" {
		t.Errorf("Expected analyze path /analyze/, got %s", cfg.Backend.AnalyzePath)
	}
	if cfg.Backend.Timeout != 0 {
		t.Errorf("Expected transport default timeout, got %v", cfg.Backend.Timeout)
	}
	if cfg.Report.FilenamePrefix != "PCI_DSS_Action_Report" {
		t.Errorf("Expected PCI_DSS_Action_Report prefix, got %s", cfg.Report.FilenamePrefix)
	}
	if cfg.Report.ErrorPreviewLength != 500 {
		t.Errorf("Expected preview length 500, got %d", cfg.Report.ErrorPreviewLength)
	}
	if cfg.Storage.HistoryKey != "download_history" {
		t.Errorf("Expected history key download_history, got %s", cfg.Storage.HistoryKey)
	}
	if len(cfg.Analysis.AllowedExtensions) != 2 {
		t.Errorf("Expected 2 allowed extensions, got %d", len(cfg.Analysis.AllowedExtensions))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: true,
			errMsg:  "backend base_url is required",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "localhost:8000" },
			wantErr: true,
			errMsg:  "invalid backend base_url: localhost:8000 (must be an absolute http or https URL)",
		},
		{
			name:    "analyze path without slash",
			mutate:  func(c *Config) { c.Backend.AnalyzePath = "analyze" },
			wantErr: true,
			errMsg:  "analyze_path must start with /",
		},
		{
			name:    "negative max retries",
			mutate:  func(c *Config) { c.Backend.MaxRetries = -1 },
			wantErr: true,
			errMsg:  "max_retries must be non-negative",
		},
		{
			name:    "negative backend timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = -time.Second },
			wantErr: true,
			errMsg:  "timeout must be non-negative",
		},
		{
			name:    "prefix with separator",
			mutate:  func(c *Config) { c.Report.FilenamePrefix = "a/b" },
			wantErr: true,
			errMsg:  "filename_prefix must not contain path separators",
		},
		{
			name:    "extension with dot",
			mutate:  func(c *Config) { c.Report.Extension = ".xlsx" },
			wantErr: true,
			errMsg:  `invalid report extension: ".xlsx" (give it without a leading dot)`,
		},
		{
			name:    "zero preview length",
			mutate:  func(c *Config) { c.Report.ErrorPreviewLength = 0 },
			wantErr: true,
			errMsg:  "error_preview_length must be greater than 0",
		},
		{
			name:    "invalid storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: true,
			errMsg:  "invalid storage backend: redis (must be one of: memory, file, sqlite)",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.Path = "" },
			wantErr: true,
			errMsg:  "storage path is required for the sqlite backend",
		},
		{
			name:   "memory without path",
			mutate: func(c *Config) { c.Storage.Backend = "memory"; c.Storage.Path = "" },
		},
		{
			name:    "archive without endpoint",
			mutate:  func(c *Config) { c.Archive.Enabled = true },
			wantErr: true,
			errMsg:  "archive endpoint is required when archiving is enabled",
		},
		{
			name:    "invalid output format",
			mutate:  func(c *Config) { c.Output.DefaultFormat = "xml" },
			wantErr: true,
			errMsg:  "invalid output format: xml (must be one of: json, text, markdown, csv)",
		},
		{
			name:    "invalid color mode",
			mutate:  func(c *Config) { c.Output.ColorMode = "invalid" },
			wantErr: true,
			errMsg:  "invalid color mode: invalid (must be one of: auto, always, never)",
		},
		{
			name:    "extension without dot",
			mutate:  func(c *Config) { c.Analysis.AllowedExtensions = []string{"xlsx"} },
			wantErr: true,
			errMsg:  `allowed extension "xlsx" must start with a dot`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
