package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/GapReport/internal/logger"
)

const (
	opAnalyze  = "analyze"
	opView     = "format view"
	opDownload = "format download"
	opHealth   = "health check"

	maxErrorBody = 1 << 20
)

// Client talks to the gap-analysis backend
type Client struct {
	config  Config
	client  *http.Client
	baseURL *url.URL
	log     *logger.Logger
	metrics Metrics
}

// Metrics observes backend requests. Track wraps one logical request,
// retries included.
type Metrics interface {
	Track(op string, fn func() error) error
	RecordRetry(op string)
	RecordBytes(sent, received int64)
}

type nopMetrics struct{}

func (nopMetrics) Track(_ string, fn func() error) error { return fn() }
func (nopMetrics) RecordRetry(string)                    {}
func (nopMetrics) RecordBytes(int64, int64)              {}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.WithComponent("backend")
		}
	}
}

// WithMetrics records request counts and latencies into m
func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New builds a client. A zero Timeout keeps the transport default.
func New(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := config.withDefaults()
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}

	c := &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: baseURL,
		log:     logger.Nop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Analyze uploads a spreadsheet and returns its findings, possibly none
func (c *Client) Analyze(ctx context.Context, filename string, data []byte) ([]Finding, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, NewPreconditionError(opAnalyze, "a file name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	resp, body, err := c.do(ctx, opAnalyze, http.MethodPost, c.config.AnalyzePath, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}

	mediaType := parseMediaType(resp.Header.Get("Content-Type"))
	if !isJSONMediaType(mediaType) {
		return nil, newContentTypeError(opAnalyze, "application/json", mediaType)
	}

	findings, err := decodeFindings(body)
	if err != nil {
		return nil, &Error{Kind: KindContentType, Op: opAnalyze, Message: err.Error()}
	}

	c.log.DebugWithFields("analysis returned", []logger.Field{
		logger.F("file", filename),
		logger.Count(len(findings)),
	})
	return findings, nil
}

// FormatView asks for the human-readable report
func (c *Client) FormatView(ctx context.Context, req FormatRequest) (*Document, error) {
	return c.format(ctx, opView, c.config.ViewPath, c.config.ViewMediaType, req)
}

// FormatDownload asks for the spreadsheet report
func (c *Client) FormatDownload(ctx context.Context, req FormatRequest) (*Document, error) {
	return c.format(ctx, opDownload, c.config.DownloadPath, c.config.DownloadMediaType, req)
}

func (c *Client) format(ctx context.Context, op, path, expected string, req FormatRequest) (*Document, error) {
	if req.Findings == nil {
		req.Findings = []Finding{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	resp, body, err := c.do(ctx, op, http.MethodPost, path, "application/json", payload)
	if err != nil {
		return nil, err
	}

	mediaType := parseMediaType(resp.Header.Get("Content-Type"))
	if !strings.EqualFold(mediaType, expected) {
		return nil, newContentTypeError(op, expected, mediaType)
	}

	return &Document{
		MediaType: mediaType,
		Data:      body,
		Filename:  dispositionFilename(resp.Header.Get("Content-Disposition")),
	}, nil
}

// HealthCheck calls the status route
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	_, body, err := c.do(ctx, opHealth, http.MethodGet, c.config.HealthPath, "", nil)
	if err != nil {
		return nil, err
	}

	status := &HealthStatus{}
	if err := json.Unmarshal(body, status); err != nil || status.Status == "" {
		status.Status = Truncate(strings.TrimSpace(string(body)), 80)
	}
	return status, nil
}

// do sends one logical request, retrying transport failures and 429/503.
// On success the body is fully read and closed.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, payload []byte) (*http.Response, []byte, error) {
	var (
		resp *http.Response
		body []byte
	)
	err := c.metrics.Track(op, func() error {
		var err error
		resp, body, err = c.doWithRetry(ctx, op, method, path, contentType, payload)
		return err
	})
	return resp, body, err
}

func (c *Client) doWithRetry(ctx context.Context, op, method, path, contentType string, payload []byte) (*http.Response, []byte, error) {
	endpoint := c.baseURL.JoinPath(path)
	requestID := uuid.NewString()

	var lastErr *Error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt, lastErr)
			c.metrics.RecordRetry(op)
			c.log.DebugWithFields("retrying request", []logger.Field{
				logger.F("op", op),
				logger.F("attempt", attempt),
				logger.Duration(delay),
			})
			if err := sleepContext(ctx, delay); err != nil {
				return nil, nil, newTransportError(op, err)
			}
		}

		resp, body, err := c.send(ctx, op, method, endpoint.String(), contentType, payload, requestID)
		if err == nil {
			return resp, body, nil
		}
		lastErr = err
		if !err.Retryable || ctx.Err() != nil {
			break
		}
	}

	c.log.WarnWithFields("request failed", []logger.Field{
		logger.F("op", op),
		logger.F("request_id", requestID),
		logger.Error(lastErr),
	})
	return nil, nil, lastErr
}

type retryAfterError struct {
	after time.Duration
}

func (e retryAfterError) Error() string {
	return "retry after " + e.after.String()
}

func (c *Client) send(ctx context.Context, op, method, endpoint, contentType string, payload []byte, requestID string) (*http.Response, []byte, *Error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, &Error{Kind: KindTransport, Op: op, Message: "failed to create request", Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, newTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.DebugWithFields("response received", []logger.Field{
		logger.F("op", op),
		logger.F("status", resp.StatusCode),
		logger.F("request_id", requestID),
		logger.Duration(time.Since(start)),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := ExtractDiagnostic(errBody, c.config.PreviewLength)
		if message == "" {
			message = fmt.Sprintf("request failed with status %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		serverErr := newServerError(op, resp.StatusCode, message)
		if after, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			serverErr.Cause = retryAfterError{after: after}
		}
		return nil, nil, serverErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, newTransportError(op, fmt.Errorf("failed to read response: %w", err))
	}
	c.metrics.RecordBytes(int64(len(payload)), int64(len(body)))

	return resp, body, nil
}

func (c *Client) backoff(attempt int, last *Error) time.Duration {
	if last != nil {
		if ra, ok := last.Cause.(retryAfterError); ok {
			return min(ra.after, maxRetryDelay)
		}
	}
	delay := c.config.RetryDelay << (attempt - 1)
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func parseMediaType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return mediaType
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
