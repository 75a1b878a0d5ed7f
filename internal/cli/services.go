package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/config"
	"github.com/yildizm/GapReport/internal/history"
	"github.com/yildizm/GapReport/internal/kv"
	"github.com/yildizm/GapReport/internal/logger"
	"github.com/yildizm/GapReport/internal/monitor"
	"github.com/yildizm/GapReport/internal/sink"
	"github.com/yildizm/GapReport/internal/workflow"
)

// archivePrefix is the object key prefix for archived reports
const archivePrefix = "reports"

// clock stamps sessions and history entries; tests pin it
var clock = time.Now

// services are the long-lived pieces a command needs, built from config
type services struct {
	cfg     *config.Config
	log     *logger.Logger
	client  *backend.Client
	store   kv.Store
	history *history.Log
	saver   workflow.Saver
	metrics *monitor.Requests
}

func openServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*services, error) {
	metrics := monitor.NewRequests()
	client, err := backend.New(backendConfig(cfg), backend.WithLogger(log), backend.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	store, err := kv.Open(cfg.Storage.Backend, config.ExpandPath(cfg.Storage.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	saver, err := newSaver(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &services{
		cfg:     cfg,
		log:     log,
		client:  client,
		store:   store,
		history: history.New(store, cfg.Storage.HistoryKey, history.DefaultLimit),
		saver:   saver,
		metrics: metrics,
	}, nil
}

func backendConfig(cfg *config.Config) *backend.Config {
	bc := backend.DefaultConfig()
	bc.BaseURL = cfg.Backend.BaseURL
	if cfg.Backend.AnalyzePath != "" {
		bc.AnalyzePath = cfg.Backend.AnalyzePath
	}
	if cfg.Backend.ViewPath != "" {
		bc.ViewPath = cfg.Backend.ViewPath
	}
	if cfg.Backend.DownloadPath != "" {
		bc.DownloadPath = cfg.Backend.DownloadPath
	}
	if cfg.Backend.HealthPath != "" {
		bc.HealthPath = cfg.Backend.HealthPath
	}
	bc.APIKey = cfg.Backend.APIKey
	bc.Timeout = cfg.Backend.Timeout
	bc.MaxRetries = cfg.Backend.MaxRetries
	if cfg.Report.ViewMediaType != "" {
		bc.ViewMediaType = cfg.Report.ViewMediaType
	}
	if cfg.Report.DownloadMediaType != "" {
		bc.DownloadMediaType = cfg.Report.DownloadMediaType
	}
	if cfg.Report.ErrorPreviewLength > 0 {
		bc.PreviewLength = cfg.Report.ErrorPreviewLength
	}
	return bc
}

// newSaver writes reports to the output directory and, when archiving is
// enabled, copies them to object storage as well
func newSaver(ctx context.Context, cfg *config.Config, log *logger.Logger) (workflow.Saver, error) {
	dir, err := sink.NewDirectory(config.ExpandPath(cfg.Report.OutputDir))
	if err != nil {
		return nil, fmt.Errorf("failed to set up output directory: %w", err)
	}
	if !cfg.Archive.Enabled {
		return dir, nil
	}

	archive, err := sink.NewMinIO(ctx, sink.MinIOConfig{
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Bucket:    cfg.Archive.Bucket,
		Region:    cfg.Archive.Region,
		UseSSL:    cfg.Archive.UseSSL,
		Prefix:    archivePrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up report archive: %w", err)
	}
	return &sink.Multi{Primary: dir, Archive: archive, Log: log}, nil
}

// controller starts a fresh session reporting to p
func (s *services) controller(p workflow.Presenter) (*workflow.Controller, error) {
	return workflow.NewController(workflow.Options{
		Backend:           s.client,
		Saver:             s.saver,
		History:           s.history,
		Presenter:         p,
		Logger:            s.log,
		FilenamePrefix:    s.cfg.Report.FilenamePrefix,
		Extension:         s.cfg.Report.Extension,
		AllowedExtensions: s.cfg.Analysis.AllowedExtensions,
		MaxFileSize:       s.cfg.Analysis.MaxFileSize,
		TimestampFormat:   s.cfg.Output.TimestampFormat,
		Clock:             clock,
	})
}

// analysisContext applies the configured per-run deadline
func (s *services) analysisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Analysis.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Analysis.Timeout)
	}
	return context.WithCancel(ctx)
}

// writeStats prints the backend request statistics in the output format
func (s *services) writeStats(w io.Writer) error {
	return monitor.WriteReport(w, s.metrics.Snapshot(), monitor.ReportFormat(getOutputFormat()))
}

func (s *services) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close history store: %w", err)
	}
	return nil
}
