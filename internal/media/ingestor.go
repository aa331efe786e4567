package media

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// VideoDurationUpdater persists probed durations on video records.
type VideoDurationUpdater interface {
	UpdateDuration(ctx context.Context, videoID string, seconds float64) error
}

// DurationIngestorConfig controls the concurrency characteristics of the ingestor.
type DurationIngestorConfig struct {
	QueueSize int
	Workers   int
}

// DurationIngestor asynchronously probes staged uploads and backfills the
// duration on the stored video record. Uploads respond immediately with a
// zero duration; the probed value follows once a worker gets to the file.
type DurationIngestor struct {
	prober  Prober
	updater VideoDurationUpdater
	logger  *slog.Logger

	jobs   chan probeJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type probeJob struct {
	videoID string
	path    string
}

var errIngestorClosed = errors.New("duration ingestor closed")

// NewDurationIngestor constructs a background worker pool that probes uploads.
func NewDurationIngestor(prober Prober, updater VideoDurationUpdater, cfg DurationIngestorConfig, logger *slog.Logger) *DurationIngestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &DurationIngestor{
		prober:  prober,
		updater: updater,
		logger:  logger,
		jobs:    make(chan probeJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules a staged file for probing. The ingestor owns the file
// from this point and removes it when done.
func (i *DurationIngestor) Enqueue(ctx context.Context, videoID, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	job := probeJob{videoID: videoID, path: path}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *DurationIngestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *DurationIngestor) worker() {
	defer i.wg.Done()

	// Drain the queue even during shutdown so accepted jobs are never lost;
	// Shutdown closes the channel after Enqueue stops accepting new ones.
	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *DurationIngestor) handleJob(job probeJob) {
	defer func() {
		if err := os.Remove(job.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.logger.Warn("remove staged upload", "videoId", job.videoID, "error", err)
		}
	}()

	if i.prober == nil || i.updater == nil {
		i.logger.Error("duration ingestor missing dependencies", "hasProber", i.prober != nil, "hasUpdater", i.updater != nil)
		return
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	info, err := i.prober.Probe(probeCtx, job.path)
	if err != nil {
		// The record keeps its zero duration; playback is unaffected.
		i.logger.Warn("duration probe failed", "videoId", job.videoID, "error", err)
		return
	}

	updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.UpdateDuration(updateCtx, job.videoID, info.Duration); err != nil {
		i.logger.Error("store probed duration", "videoId", job.videoID, "error", err)
	}
}
