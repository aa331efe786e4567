package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type proberFunc func(ctx context.Context, path string) (Info, error)

func (f proberFunc) Probe(ctx context.Context, path string) (Info, error) {
	return f(ctx, path)
}

type recordingUpdater struct {
	mu        sync.Mutex
	durations map[string]float64
	done      chan struct{}
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{durations: make(map[string]float64), done: make(chan struct{}, 8)}
}

func (u *recordingUpdater) UpdateDuration(_ context.Context, videoID string, seconds float64) error {
	u.mu.Lock()
	u.durations[videoID] = seconds
	u.mu.Unlock()
	u.done <- struct{}{}
	return nil
}

func stageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("stage file: %v", err)
	}
	return path
}

func TestDurationIngestorProbesAndCleansUp(t *testing.T) {
	updater := newRecordingUpdater()
	prober := proberFunc(func(ctx context.Context, path string) (Info, error) {
		return Info{Duration: 42.5}, nil
	})

	ing := NewDurationIngestor(prober, updater, DurationIngestorConfig{}, nil)

	path := stageFile(t)
	if err := ing.Enqueue(context.Background(), "video-1", path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-updater.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for probe")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	updater.mu.Lock()
	got := updater.durations["video-1"]
	updater.mu.Unlock()
	if got != 42.5 {
		t.Fatalf("expected duration 42.5, got %v", got)
	}

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected staged file to be removed, stat err = %v", err)
	}
}

func TestDurationIngestorToleratesProbeFailure(t *testing.T) {
	updater := newRecordingUpdater()
	prober := proberFunc(func(ctx context.Context, path string) (Info, error) {
		return Info{}, errors.New("probe failed")
	})

	ing := NewDurationIngestor(prober, updater, DurationIngestorConfig{}, nil)

	path := stageFile(t)
	if err := ing.Enqueue(context.Background(), "video-1", path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	updater.mu.Lock()
	_, updated := updater.durations["video-1"]
	updater.mu.Unlock()
	if updated {
		t.Fatal("failed probe must not update the record")
	}

	// The staged file is still cleaned up.
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected staged file to be removed, stat err = %v", err)
	}
}

func TestDurationIngestorEnqueueAfterShutdown(t *testing.T) {
	ing := NewDurationIngestor(proberFunc(func(context.Context, string) (Info, error) {
		return Info{}, nil
	}), newRecordingUpdater(), DurationIngestorConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := ing.Enqueue(context.Background(), "video-1", "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected enqueue to fail after shutdown")
	}
}
