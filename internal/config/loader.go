package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "GAPREPORT_"

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.gapreport.yaml",               // Project-specific config (highest priority)
	"~/.config/gapreport/config.yaml", // User config
	"/etc/gapreport/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	warn        func(format string, args ...interface{})
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		warn: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.gapreport.yaml
// 4. ~/.config/gapreport/config.yaml
// 5. /etc/gapreport/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				l.warn("failed to load config from %s: %v", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file on top of config. Keys absent from the
// file keep their current values, so booleans set to false survive as well.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	// Decode into a copy so a half-applied file never leaks into config
	merged := *config
	merged.Analysis.AllowedExtensions = append([]string(nil), config.Analysis.AllowedExtensions...)

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&merged); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	*config = merged
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Backend Config
		"BACKEND_BASE_URL":      func(v string) error { config.Backend.BaseURL = v; return nil },
		"BACKEND_ANALYZE_PATH":  func(v string) error { config.Backend.AnalyzePath = v; return nil },
		"BACKEND_VIEW_PATH":     func(v string) error { config.Backend.ViewPath = v; return nil },
		"BACKEND_DOWNLOAD_PATH": func(v string) error { config.Backend.DownloadPath = v; return nil },
		"BACKEND_HEALTH_PATH":   func(v string) error { config.Backend.HealthPath = v; return nil },
		"BACKEND_API_KEY":       func(v string) error { config.Backend.APIKey = v; return nil },
		"BACKEND_TIMEOUT":       func(v string) error { return parseDuration(v, &config.Backend.Timeout) },
		"BACKEND_MAX_RETRIES":   func(v string) error { return parseInt(v, &config.Backend.MaxRetries) },

		// Report Config
		"REPORT_FILENAME_PREFIX": func(v string) error { config.Report.FilenamePrefix = v; return nil },
		"REPORT_EXTENSION":       func(v string) error { config.Report.Extension = v; return nil },
		"REPORT_OUTPUT_DIR":      func(v string) error { config.Report.OutputDir = v; return nil },

		// Storage Config
		"STORAGE_BACKEND":     func(v string) error { config.Storage.Backend = v; return nil },
		"STORAGE_PATH":        func(v string) error { config.Storage.Path = v; return nil },
		"STORAGE_HISTORY_KEY": func(v string) error { config.Storage.HistoryKey = v; return nil },

		// Archive Config
		"ARCHIVE_ENABLED":    func(v string) error { return parseBool(v, &config.Archive.Enabled) },
		"ARCHIVE_ENDPOINT":   func(v string) error { config.Archive.Endpoint = v; return nil },
		"ARCHIVE_ACCESS_KEY": func(v string) error { config.Archive.AccessKey = v; return nil },
		"ARCHIVE_SECRET_KEY": func(v string) error { config.Archive.SecretKey = v; return nil },
		"ARCHIVE_BUCKET":     func(v string) error { config.Archive.Bucket = v; return nil },
		"ARCHIVE_REGION":     func(v string) error { config.Archive.Region = v; return nil },
		"ARCHIVE_USE_SSL":    func(v string) error { return parseBool(v, &config.Archive.UseSSL) },

		// Output Config
		"OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },
		"OUTPUT_SHOW_PROGRESS":    func(v string) error { return parseBool(v, &config.Output.ShowProgress) },
		"OUTPUT_THEME":            func(v string) error { config.Output.Theme = v; return nil },

		// Analysis Config
		"ANALYSIS_TIMEOUT":        func(v string) error { return parseDuration(v, &config.Analysis.Timeout) },
		"ANALYSIS_MAX_FILE_SIZE":  func(v string) error { return parseInt64(v, &config.Analysis.MaxFileSize) },
		"ANALYSIS_WATCH_DEBOUNCE": func(v string) error { return parseDuration(v, &config.Analysis.WatchDebounce) },
	}

	for suffix, setter := range envMappings {
		envVar := EnvPrefix + suffix
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// Comma-separated list
	if exts := os.Getenv(EnvPrefix + "ANALYSIS_ALLOWED_EXTENSIONS"); exts != "" {
		config.Analysis.AllowedExtensions = nil
		for _, ext := range strings.Split(exts, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				config.Analysis.AllowedExtensions = append(config.Analysis.AllowedExtensions, ext)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseInt64(s string, dst *int64) error {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
