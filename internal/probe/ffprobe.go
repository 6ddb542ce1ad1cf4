package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var ErrNoDuration = errors.New("ffprobe output has no format.duration")

const ffprobePathEnv = "FWTEXT_FFPROBE_PATH"

type Prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

type FFProbe struct {
	Executable string
	Logger     *zap.Logger
}

func NewFFProbe(logger *zap.Logger) *FFProbe {
	if logger == nil {
		logger = zap.NewNop()
	}

	executable := "ffprobe"
	if override := strings.TrimSpace(os.Getenv(ffprobePathEnv)); override != "" {
		executable = override
	}

	return &FFProbe{Executable: executable, Logger: logger}
}

// ProbeDuration returns the container duration of path in seconds.
func (p *FFProbe) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("media path is required")
	}

	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", path}
	cmd := exec.CommandContext(ctx, p.Executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.log().Debug("running ffprobe", zap.String("ffprobe", p.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("ffprobe not found (install ffmpeg or set %s): %w", ffprobePathEnv, err)
		}
		if errText := strings.TrimSpace(stderr.String()); errText != "" {
			return 0, fmt.Errorf("ffprobe %s failed: %w (%s)", path, err, errText)
		}
		return 0, fmt.Errorf("ffprobe %s failed: %w", path, err)
	}

	duration, err := ParseDuration(stdout.Bytes())
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	p.log().Debug("probed media duration", zap.String("path", path), zap.Float64("seconds", duration))
	return duration, nil
}

type formatReport struct {
	Format *struct {
		Duration json.RawMessage `json:"duration"`
	} `json:"format"`
}

// ParseDuration extracts format.duration from ffprobe JSON output. ffprobe encodes the
// value as a string, but a bare number is accepted as well.
func ParseDuration(data []byte) (float64, error) {
	var report formatReport
	if err := json.Unmarshal(data, &report); err != nil {
		return 0, fmt.Errorf("decode ffprobe json: %w", err)
	}
	if report.Format == nil || len(report.Format.Duration) == 0 {
		return 0, ErrNoDuration
	}

	raw := strings.TrimSpace(string(report.Format.Duration))
	if raw == "null" {
		return 0, ErrNoDuration
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" || raw == "N/A" {
		return 0, ErrNoDuration
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	return seconds, nil
}

func (p *FFProbe) log() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
