package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFFProbeParsesFormat(t *testing.T) {
	prober := NewFFProbe("ffprobe", time.Second)
	prober.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		wantArgs := []string{"-v", "error", "-print_format", "json", "-show_format", "/tmp/clip.mp4"}
		if len(args) != len(wantArgs) {
			t.Fatalf("unexpected args length: got %d want %d", len(args), len(wantArgs))
		}
		for i, arg := range wantArgs {
			if args[i] != arg {
				t.Fatalf("unexpected arg at %d: got %q want %q", i, args[i], arg)
			}
		}
		return []byte(`{"format":{"duration":"12.480000","size":"1048576","format_name":"mov,mp4,m4a"}}`), nil
	}

	info, err := prober.Probe(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration != 12.48 || info.Size != 1048576 || info.Format != "mov,mp4,m4a" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestFFProbeMissingDuration(t *testing.T) {
	prober := NewFFProbe("ffprobe", time.Second)
	prober.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	}

	if _, err := prober.Probe(context.Background(), "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected error for missing duration")
	}
}

func TestFFProbeRunFailure(t *testing.T) {
	prober := NewFFProbe("", 0)
	if prober.Binary != "ffprobe" {
		t.Fatalf("expected default binary, got %q", prober.Binary)
	}
	prober.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}

	if _, err := prober.Probe(context.Background(), "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected error when ffprobe fails")
	}
}

func TestFFProbeNilReceiver(t *testing.T) {
	var prober *FFProbe
	if _, err := prober.Probe(context.Background(), "/tmp/clip.mp4"); !errors.Is(err, ErrProberUnavailable) {
		t.Fatalf("expected ErrProberUnavailable, got %v", err)
	}
}
