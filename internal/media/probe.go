package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Info captures the probed properties of an uploaded media file.
type Info struct {
	Duration float64
	Size     int64
	Format   string
}

// Prober inspects a media file on disk.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFProbe inspects media files using the ffprobe CLI tool.
type FFProbe struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

// NewFFProbe constructs a Prober that shells out to ffprobe.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{
		Binary:  binary,
		Args:    []string{"-v", "error", "-print_format", "json", "-show_format"},
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

// Probe executes ffprobe for the provided file and parses the JSON response.
func (p *FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	if p == nil {
		return Info{}, ErrProberUnavailable
	}
	if p.Run == nil {
		p.Run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append([]string{}, p.Args...)
	args = append(args, path)

	out, err := p.Run(execCtx, p.Binary, args...)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe run: %w", err)
	}

	var payload struct {
		Format struct {
			Duration   string `json:"duration"`
			Size       string `json:"size"`
			FormatName string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe response: %w", err)
	}

	if payload.Format.Duration == "" {
		return Info{}, errors.New("ffprobe returned no duration")
	}

	duration, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return Info{}, fmt.Errorf("parse duration %q: %w", payload.Format.Duration, err)
	}

	size, _ := strconv.ParseInt(payload.Format.Size, 10, 64)

	return Info{
		Duration: duration,
		Size:     size,
		Format:   payload.Format.FormatName,
	}, nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
