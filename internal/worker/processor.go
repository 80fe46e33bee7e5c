package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"s3up/internal/compare"
	"s3up/internal/config"
	"s3up/internal/history"
	"s3up/internal/metrics"
	"s3up/internal/progress"
	"s3up/internal/stats"
	"s3up/internal/storage"
	"s3up/internal/uploader"
	"s3up/internal/walker"

	"go.uber.org/zap"
)

// Mode selects what the pipeline does per file.
type Mode int

const (
	// ModeUpload compares, transfers when needed, and signs a URL.
	ModeUpload Mode = iota
	// ModeURLOnly signs URLs for objects that already exist remotely.
	ModeURLOnly
	// ModeDryRun reports the intended action per file without
	// transferring anything.
	ModeDryRun
)

// ProcessorConfig wires a Processor.
type ProcessorConfig struct {
	Mode       Mode
	Client     storage.Client
	Bucket     string
	Comparator *compare.Comparator
	Uploader   *uploader.Uploader
	BasePath   string
	Flatten    bool
	KeyPrefix  string
	URLExpiry  time.Duration
	Stats      *stats.Stats
	Metrics    *metrics.Collector
	History    history.Store // nil disables the journal
	Logger     *zap.Logger
}

// Processor runs the pipeline for single files.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Process runs one job to a Result. Per-file errors become Failed
// results here; they never abort other jobs.
func (p *Processor) Process(ctx context.Context, job Job, sink progress.Sink) Result {
	start := time.Now()
	defer func() {
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.ObserveDuration(time.Since(start))
		}
	}()

	rel, err := walker.RelativePath(p.cfg.BasePath, job.Path, p.cfg.Flatten)
	if err != nil {
		return p.failed(job.Path, "", 0, err)
	}
	key := config.BuildKey(p.cfg.KeyPrefix, rel)

	switch p.cfg.Mode {
	case ModeURLOnly:
		return p.processURLOnly(ctx, rel, key)
	case ModeDryRun:
		return p.processDryRun(ctx, job, rel, key)
	default:
		return p.processUpload(ctx, job, rel, key, sink)
	}
}

func (p *Processor) processUpload(ctx context.Context, job Job, rel, key string, sink progress.Sink) Result {
	fi, err := os.Stat(job.Path)
	if err != nil {
		return p.failed(rel, key, 0, fmt.Errorf("failed to access file: %w", err))
	}
	size := fi.Size()

	comparison, err := p.cfg.Comparator.Compare(ctx, key, job.Path)
	if err != nil {
		return p.failed(rel, key, size, err)
	}

	if comparison == compare.Identical {
		url, err := p.sign(ctx, key)
		if err != nil {
			return p.failed(rel, key, size, fmt.Errorf("failed to sign URL: %w", err))
		}

		p.cfg.Stats.AddSkipped()
		p.observe("skipped", 0)
		p.record(&history.Record{Key: key, Path: job.Path, Size: size, Status: history.StatusSkipped, URL: url})
		return Result{Kind: Skipped, Name: rel, Key: key, Size: size, URL: url}
	}

	// NotFound or Different: transfer the file.
	if err := p.cfg.Uploader.Upload(ctx, job.Path, key, size, sink); err != nil {
		p.cfg.Logger.Error("Upload failed",
			zap.String("path", job.Path),
			zap.String("key", key),
			zap.Error(err),
		)
		return p.failed(rel, key, size, err)
	}

	url, err := p.sign(ctx, key)
	if err != nil {
		return p.failed(rel, key, size, fmt.Errorf("failed to sign URL: %w", err))
	}

	p.cfg.Stats.AddUploaded(size)
	p.observe("uploaded", size)
	p.record(&history.Record{Key: key, Path: job.Path, Size: size, Status: history.StatusUploaded, URL: url})
	return Result{Kind: Uploaded, Name: rel, Key: key, Size: size, URL: url}
}

func (p *Processor) processURLOnly(ctx context.Context, rel, key string) Result {
	_, err := p.cfg.Client.HeadObject(ctx, p.cfg.Bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		p.cfg.Stats.AddNotFound()
		p.observe("not_found", 0)
		p.record(&history.Record{Key: key, Path: rel, Status: history.StatusNotFound})
		return Result{Kind: NotFound, Name: rel, Key: key}
	}
	if err != nil {
		return p.failed(rel, key, 0, fmt.Errorf("failed to head s3://%s/%s: %w", p.cfg.Bucket, key, err))
	}

	url, err := p.sign(ctx, key)
	if err != nil {
		return p.failed(rel, key, 0, fmt.Errorf("failed to sign URL: %w", err))
	}

	p.cfg.Stats.AddURLGenerated()
	p.observe("url_generated", 0)
	p.record(&history.Record{Key: key, Path: rel, Status: history.StatusURLGenerated, URL: url})
	return Result{Kind: URLGenerated, Name: rel, Key: key, URL: url}
}

func (p *Processor) processDryRun(ctx context.Context, job Job, rel, key string) Result {
	fi, err := os.Stat(job.Path)
	if err != nil {
		return p.failed(rel, key, 0, fmt.Errorf("failed to access file: %w", err))
	}

	comparison, err := p.cfg.Comparator.Compare(ctx, key, job.Path)
	if err != nil {
		return p.failed(rel, key, fi.Size(), err)
	}

	switch comparison {
	case compare.NotFound:
		return Result{Kind: WouldUpload, Name: rel, Key: key, Size: fi.Size()}
	case compare.Different:
		return Result{Kind: WouldUpdate, Name: rel, Key: key, Size: fi.Size()}
	default:
		return Result{Kind: WouldSkip, Name: rel, Key: key, Size: fi.Size()}
	}
}

func (p *Processor) sign(ctx context.Context, key string) (string, error) {
	return p.cfg.Client.PresignedGetURL(ctx, p.cfg.Bucket, key, storage.ClampExpiry(p.cfg.URLExpiry))
}

func (p *Processor) failed(rel, key string, size int64, err error) Result {
	p.cfg.Stats.AddFailed()
	p.observe("failed", 0)
	if key != "" {
		p.record(&history.Record{Key: key, Path: rel, Size: size, Status: history.StatusFailed, LastError: err.Error()})
	}
	return Result{Kind: Failed, Name: rel, Key: key, Size: size, Err: err.Error()}
}

func (p *Processor) observe(status string, bytes int64) {
	if p.cfg.Metrics == nil {
		return
	}
	p.cfg.Metrics.IncStatus(status)
	if bytes > 0 {
		p.cfg.Metrics.AddBytes(bytes)
	}
}

func (p *Processor) record(rec *history.Record) {
	if p.cfg.History == nil {
		return
	}
	if err := p.cfg.History.Save(rec); err != nil {
		p.cfg.Logger.Warn("Failed to save history record",
			zap.String("key", rec.Key),
			zap.Error(err),
		)
	}
}
