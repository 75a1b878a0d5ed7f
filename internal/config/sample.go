package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# GapReport configuration
version: "1.0"

# Gap-analysis backend
backend:
  base_url: "http://localhost:8000"
  analyze_path: "/analyze/"          # multipart upload, form field "file"
  view_path: "/format/view/"         # returns text/html
  download_path: "/format/download/" # returns an xlsx workbook
  health_path: "/"
  api_key: ""                        # or GAPREPORT_BACKEND_API_KEY
  timeout: 0s                        # 0 keeps the transport default
  max_retries: 0                     # retries on network errors, 429 and 503

# Downloaded report naming and response checks
report:
  filename_prefix: "PCI_DSS_Action_Report"
  extension: "xlsx"
  view_media_type: "text/html"
  download_media_type: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
  output_dir: "~/Downloads"
  error_preview_length: 500

# Download history
storage:
  backend: "file" # memory|file|sqlite
  path: "~/.local/share/gapreport/history.json"
  history_key: "download_history"

# Optional copy of every downloaded report in S3 compatible storage
archive:
  enabled: false
  endpoint: "localhost:9000"
  access_key: ""
  secret_key: ""
  bucket: "gapreport-reports"
  region: "us-east-1"
  use_ssl: true

output:
  default_format: "text" # text|json|markdown|csv
  color_mode: "auto"     # auto|always|never
  verbose: false
  timestamp_format: "2006-01-02 15:04:05"
  show_progress: true
  theme: "default"       # default|high-contrast|minimal

analysis:
  allowed_extensions: [".xlsx", ".xls"]
  timeout: 0s            # 0 disables the per-run deadline
  max_file_size: 26214400
  watch_debounce: 500ms
`
}

// MinimalSampleConfig returns a compact configuration with essential settings
func MinimalSampleConfig() string {
	return `version: "1.0"
backend:
  base_url: "http://localhost:8000"
report:
  output_dir: "~/Downloads"
storage:
  backend: "file"
  path: "~/.local/share/gapreport/history.json"
`
}
