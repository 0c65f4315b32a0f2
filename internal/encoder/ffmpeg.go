package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// FFmpegConfig holds configuration for the FFmpeg encoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	FFprobePath string

	// Timeout bounds every single invocation. Zero disables the bound.
	Timeout time.Duration

	// JPEGQuality is passed to -q:v (2 is near lossless, 31 is worst).
	JPEGQuality int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     2 * time.Minute,
		JPEGQuality: 2,
	}
}

// runFunc executes a binary and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegEncoder implements Encoder using the ffmpeg and ffprobe CLIs.
type FFmpegEncoder struct {
	config FFmpegConfig
	run    runFunc
	logger *slog.Logger
}

// Compile-time verification that FFmpegEncoder implements Encoder.
var _ Encoder = (*FFmpegEncoder)(nil)

// NewFFmpegEncoder creates a new FFmpeg-based encoder.
func NewFFmpegEncoder(cfg FFmpegConfig) *FFmpegEncoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 2
	}
	return &FFmpegEncoder{
		config: cfg,
		run:    execCommand,
		logger: slog.Default(),
	}
}

// Probe reads the duration of inputPath with ffprobe.
func (e *FFmpegEncoder) Probe(ctx context.Context, inputPath string) (float64, error) {
	if err := validateInput(inputPath); err != nil {
		return 0, err
	}

	out, err := e.invoke(ctx, "probe", e.config.FFprobePath, e.buildProbeArgs(inputPath))
	if err != nil {
		return 0, err
	}

	return parseProbeOutput(out)
}

// ExtractFrames grabs one frame per timestamp. Each frame is its own
// ffmpeg run so one bad seek does not lose the others.
func (e *FFmpegEncoder) ExtractFrames(ctx context.Context, inputPath, outputDir string, timestamps []float64, size FrameSize) ([]Frame, error) {
	if err := validateInput(inputPath); err != nil {
		return nil, err
	}
	if err := validateOutputDir(outputDir); err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("at least one timestamp is required")
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", size.Width, size.Height)
	}

	frames := make([]Frame, len(timestamps))
	produced := 0
	var lastErr error

	for i, ts := range timestamps {
		frames[i] = Frame{Index: i, Timestamp: ts}

		if err := ctx.Err(); err != nil {
			frames[i].Err = err
			lastErr = err
			continue
		}

		outputPath := filepath.Join(outputDir, fmt.Sprintf("frame_%02d.jpg", i+1))
		data, err := e.extractFrame(ctx, inputPath, outputPath, ts, size)
		if err != nil {
			frames[i].Err = err
			lastErr = err
		} else {
			frames[i].Data = data
			produced++
		}

		e.logger.Debug("encoder progress",
			slog.String("op", "extract_frames"),
			slog.Int("done", i+1),
			slog.Int("total", len(timestamps)),
			slog.Int("produced", produced),
		)
	}

	if produced == 0 {
		return frames, fmt.Errorf("%w: %w", ErrNoFrames, lastErr)
	}
	return frames, nil
}

// extractFrame runs ffmpeg for one timestamp and returns the JPEG bytes.
// The output file is removed whether or not the read succeeds.
func (e *FFmpegEncoder) extractFrame(ctx context.Context, inputPath, outputPath string, ts float64, size FrameSize) ([]byte, error) {
	defer func() { _ = os.Remove(outputPath) }()

	if _, err := e.invoke(ctx, "extract_frame", e.config.FFmpegPath, e.buildFrameArgs(inputPath, outputPath, ts, size)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame at %.2fs", ts)
	}
	return data, nil
}

// invoke runs one external command with the configured timeout and
// reports start/end/error events. ExtractFrames adds a progress event per frame.
func (e *FFmpegEncoder) invoke(ctx context.Context, op, bin string, args []string) ([]byte, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	e.logger.Debug("encoder started", slog.String("op", op), slog.String("bin", bin))

	out, err := e.run(ctx, bin, args...)
	elapsed := time.Since(start)
	metrics.EncoderDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		metrics.EncoderRunsTotal.WithLabelValues(op, metrics.StatusError).Inc()
		if ctx.Err() != nil {
			err = fmt.Errorf("%s cancelled after %s: %w", op, elapsed.Round(time.Millisecond), ctx.Err())
		} else {
			err = fmt.Errorf("%s failed: %w", op, err)
		}
		e.logger.Warn("encoder failed",
			slog.String("op", op),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	metrics.EncoderRunsTotal.WithLabelValues(op, metrics.StatusSuccess).Inc()
	e.logger.Debug("encoder finished", slog.String("op", op), slog.Duration("duration", elapsed))
	return out, nil
}

// buildProbeArgs constructs the ffprobe arguments for a duration probe.
func (e *FFmpegEncoder) buildProbeArgs(inputPath string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputPath,
	}
}

// buildFrameArgs constructs the ffmpeg arguments for a single frame grab.
// -ss before -i seeks on the input, which is much faster on long files.
func (e *FFmpegEncoder) buildFrameArgs(inputPath, outputPath string, ts float64, size FrameSize) []string {
	return []string{
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", size.Width, size.Height),
		"-q:v", strconv.Itoa(e.config.JPEGQuality),
		"-y",
		outputPath,
	}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseProbeOutput extracts format.duration from ffprobe JSON output.
func parseProbeOutput(out []byte) (float64, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(p.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, p.Format.Duration)
	}
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return d, nil
}

// validateInput checks if the input file exists and is readable.
func validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// execCommand runs name with args, returning stdout. On failure the last
// line of stderr is folded into the error.
func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
