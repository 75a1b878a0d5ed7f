package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version  string         `yaml:"version" json:"version"`
	Backend  BackendConfig  `yaml:"backend" json:"backend"`
	Report   ReportConfig   `yaml:"report" json:"report"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Archive  ArchiveConfig  `yaml:"archive" json:"archive"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
}

// BackendConfig configures the analysis backend endpoints
type BackendConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	AnalyzePath  string        `yaml:"analyze_path" json:"analyze_path"`
	ViewPath     string        `yaml:"view_path" json:"view_path"`
	DownloadPath string        `yaml:"download_path" json:"download_path"`
	HealthPath   string        `yaml:"health_path" json:"health_path"`
	APIKey       string        `yaml:"api_key" json:"api_key"`         // sent as a bearer token when set
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`         // 0 keeps the transport default
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"` // extra attempts for transient failures
}

// ReportConfig configures report naming and media type checks
type ReportConfig struct {
	FilenamePrefix     string `yaml:"filename_prefix" json:"filename_prefix"`
	Extension          string `yaml:"extension" json:"extension"`
	ViewMediaType      string `yaml:"view_media_type" json:"view_media_type"`
	DownloadMediaType  string `yaml:"download_media_type" json:"download_media_type"`
	OutputDir          string `yaml:"output_dir" json:"output_dir"`
	ErrorPreviewLength int    `yaml:"error_preview_length" json:"error_preview_length"`
}

// StorageConfig configures where the download history is kept
type StorageConfig struct {
	Backend    string `yaml:"backend" json:"backend"` // memory|file|sqlite
	Path       string `yaml:"path" json:"path"`
	HistoryKey string `yaml:"history_key" json:"history_key"`
}

// ArchiveConfig configures the optional object storage copy of downloads
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"`     // json|text|markdown|csv
	ColorMode       string `yaml:"color_mode" json:"color_mode"`             // auto|always|never
	Verbose         bool   `yaml:"verbose" json:"verbose"`                   // default verbosity
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"` // time format string
	ShowProgress    bool   `yaml:"show_progress" json:"show_progress"`       // show spinners
	Theme           string `yaml:"theme" json:"theme"`                       // default|high-contrast|minimal
}

// AnalysisConfig configures client-side checks before an upload
type AnalysisConfig struct {
	AllowedExtensions []string      `yaml:"allowed_extensions" json:"allowed_extensions"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`             // 0 disables the per-run deadline
	MaxFileSize       int64         `yaml:"max_file_size" json:"max_file_size"` // bytes
	WatchDebounce     time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Backend: BackendConfig{
			BaseURL:      "http://localhost:8000",
			AnalyzePath:  "/analyze/",
			ViewPath:     "/format/view/",
			DownloadPath: "/format/download/",
			HealthPath:   "/",
			Timeout:      0,
			MaxRetries:   0,
		},
		Report: ReportConfig{
			FilenamePrefix:     "PCI_DSS_Action_Report",
			Extension:          "xlsx",
			ViewMediaType:      "text/html",
			DownloadMediaType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			OutputDir:          "~/Downloads",
			ErrorPreviewLength: 500,
		},
		Storage: StorageConfig{
			Backend:    "file",
			Path:       "~/.local/share/gapreport/history.json",
			HistoryKey: "download_history",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Bucket:  "gapreport-reports",
			Region:  "us-east-1",
			UseSSL:  true,
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Verbose:         false,
			TimestampFormat: "2006-01-02 15:04:05",
			ShowProgress:    true,
			Theme:           "default",
		},
		Analysis: AnalysisConfig{
			AllowedExtensions: []string{".xlsx", ".xls"},
			Timeout:           0,
			MaxFileSize:       25 * 1024 * 1024, // 25MB
			WatchDebounce:     500 * time.Millisecond,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateBackendConfig(); err != nil {
		return err
	}
	if err := c.validateReportConfig(); err != nil {
		return err
	}
	if err := c.validateStorageConfig(); err != nil {
		return err
	}
	if err := c.validateArchiveConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateAnalysisConfig(); err != nil {
		return err
	}
	return nil
}

// validateBackendConfig validates backend-related configuration
func (c *Config) validateBackendConfig() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid backend base_url: %s (must be an absolute http or https URL)", c.Backend.BaseURL)
	}
	for name, path := range map[string]string{
		"analyze_path":  c.Backend.AnalyzePath,
		"view_path":     c.Backend.ViewPath,
		"download_path": c.Backend.DownloadPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /", name)
		}
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

// validateReportConfig validates report naming configuration
func (c *Config) validateReportConfig() error {
	if c.Report.FilenamePrefix == "" {
		return fmt.Errorf("filename_prefix is required")
	}
	if strings.ContainsAny(c.Report.FilenamePrefix, `/\`) {
		return fmt.Errorf("filename_prefix must not contain path separators")
	}
	if c.Report.Extension == "" || strings.ContainsAny(c.Report.Extension, `./\`) {
		return fmt.Errorf("invalid report extension: %q (give it without a leading dot)", c.Report.Extension)
	}
	if c.Report.ViewMediaType == "" || c.Report.DownloadMediaType == "" {
		return fmt.Errorf("view_media_type and download_media_type are required")
	}
	if c.Report.ErrorPreviewLength < 1 {
		return fmt.Errorf("error_preview_length must be greater than 0")
	}
	return nil
}

// validateStorageConfig validates history storage configuration
func (c *Config) validateStorageConfig() error {
	validBackends := map[string]bool{
		"memory": true,
		"file":   true,
		"sqlite": true,
	}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s (must be one of: memory, file, sqlite)", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for the %s backend", c.Storage.Backend)
	}
	if c.Storage.HistoryKey == "" {
		return fmt.Errorf("history_key is required")
	}
	return nil
}

// validateArchiveConfig validates object storage configuration
func (c *Config) validateArchiveConfig() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" {
		return fmt.Errorf("archive endpoint is required when archiving is enabled")
	}
	if c.Archive.Bucket == "" {
		return fmt.Errorf("archive bucket is required when archiving is enabled")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

// validateAnalysisConfig validates analysis-related configuration
func (c *Config) validateAnalysisConfig() error {
	for _, ext := range c.Analysis.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis timeout must be non-negative")
	}
	if c.Analysis.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be non-negative")
	}
	if c.Analysis.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must be non-negative")
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory
func ExpandPath(path string) string {
	return expandPath(path)
}
