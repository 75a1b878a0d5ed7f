package backend

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultBaseURL      = "http://localhost:8000"
	DefaultAnalyzePath  = "/analyze/"
	DefaultViewPath     = "/format/view/"
	DefaultDownloadPath = "/format/download/"
	DefaultHealthPath   = "/"
	DefaultUserAgent    = "gapreport"

	MediaTypeHTML = "text/html"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// DefaultPreviewLength bounds raw error bodies shown to the user
	DefaultPreviewLength = 500

	maxRetryDelay = 30 * time.Second
)

// Config describes where the backend lives and how to talk to it
type Config struct {
	BaseURL       string        `json:"base_url"`
	AnalyzePath   string        `json:"analyze_path"`
	ViewPath      string        `json:"view_path"`
	DownloadPath  string        `json:"download_path"`
	HealthPath    string        `json:"health_path"`
	APIKey        string        `json:"api_key,omitempty"`
	Timeout       time.Duration `json:"timeout"`
	MaxRetries    int           `json:"max_retries"`
	RetryDelay    time.Duration `json:"retry_delay"`
	UserAgent     string        `json:"user_agent"`
	PreviewLength int           `json:"preview_length"`

	// Expected media types of the two format calls
	ViewMediaType     string `json:"view_media_type"`
	DownloadMediaType string `json:"download_media_type"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		AnalyzePath:   DefaultAnalyzePath,
		ViewPath:      DefaultViewPath,
		DownloadPath:  DefaultDownloadPath,
		HealthPath:    DefaultHealthPath,
		RetryDelay:    time.Second,
		UserAgent:     DefaultUserAgent,
		PreviewLength: DefaultPreviewLength,

		ViewMediaType:     MediaTypeHTML,
		DownloadMediaType: MediaTypeXLSX,
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend: base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("backend: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend: base URL must use http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("backend: timeout must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("backend: max retries must be non-negative")
	}
	return nil
}

// withDefaults fills empty fields so partially built configs stay usable
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AnalyzePath == "" {
		c.AnalyzePath = d.AnalyzePath
	}
	if c.ViewPath == "" {
		c.ViewPath = d.ViewPath
	}
	if c.DownloadPath == "" {
		c.DownloadPath = d.DownloadPath
	}
	if c.HealthPath == "" {
		c.HealthPath = d.HealthPath
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.PreviewLength <= 0 {
		c.PreviewLength = d.PreviewLength
	}
	if c.ViewMediaType == "" {
		c.ViewMediaType = d.ViewMediaType
	}
	if c.DownloadMediaType == "" {
		c.DownloadMediaType = d.DownloadMediaType
	}
	return c
}
