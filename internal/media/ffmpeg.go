// Package media wraps the ffmpeg/ffprobe CLI behind a narrow, typed
// operation set. Every operation is attempted once; retries belong to the
// caller.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storyboard-backend/internal/infra"
)

var (
	ErrProbe   = errors.New("media: probe failed")
	ErrConcat  = errors.New("media: concatenation failed")
	ErrTrim    = errors.New("media: trim failed")
	ErrOverlay = errors.New("media: audio overlay failed")
	ErrClip    = errors.New("media: image-to-clip failed")
)

// CommandRunner executes an external command and returns its stdout. Swapped
// out in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures the Tool.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	Logger      *infra.Logger
	Runner      CommandRunner
}

// ConcatOptions tunes Concatenate. TargetDuration <= 0 disables the trim
// pass. Progress receives fractions in [0,1].
type ConcatOptions struct {
	TargetDuration float64
	Progress       func(fraction float64)
}

// Tool invokes ffmpeg and ffprobe as subprocesses.
type Tool struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *infra.Logger
	run     CommandRunner
}

func NewTool(opts Options) *Tool {
	t := &Tool{
		ffmpeg:  opts.FFmpegPath,
		ffprobe: opts.FFprobePath,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		run:     opts.Runner,
	}
	if t.ffmpeg == "" {
		t.ffmpeg = "ffmpeg"
	}
	if t.ffprobe == "" {
		t.ffprobe = "ffprobe"
	}
	if t.timeout <= 0 {
		t.timeout = 10 * time.Minute
	}
	if t.run == nil {
		t.run = runCommand
	}
	return t
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.Bytes(), fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.Bytes(), nil
}

func (t *Tool) invoke(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if t.logger != nil {
		t.logger.Debug().Str("cmd", name).Strs("args", args).Msg("media: invoking tool")
	}
	return t.run(ctx, name, args...)
}

// ProbeDuration returns the container duration of a media file in seconds.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := t.invoke(ctx, t.ffprobe,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("%w: decode ffprobe output: %v", ErrProbe, err)
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: no duration in ffprobe output", ErrProbe)
	}
	return duration, nil
}

// Concatenate joins clips in the given order without re-encoding. When a
// target duration is set the result is trimmed in a second pass; the
// concat demuxer cannot trim losslessly in one go, so trim failures are
// reported distinctly from concat failures.
func (t *Tool) Concatenate(ctx context.Context, clipPaths []string, outputPath string, opts ConcatOptions) (string, error) {
	if len(clipPaths) == 0 {
		return "", fmt.Errorf("%w: no clips provided", ErrConcat)
	}
	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure output dir: %v", ErrConcat, err)
	}

	listPath := filepath.Join(outputDir, "clips_list.txt")
	if err := writeConcatList(listPath, clipPaths); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConcat, err)
	}
	defer os.Remove(listPath)

	report(opts.Progress, 0.25)

	concatTarget := outputPath
	if opts.TargetDuration > 0 {
		concatTarget = filepath.Join(outputDir, "temp_concatenated.mp4")
	}

	if _, err := t.invoke(ctx, t.ffmpeg,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		concatTarget,
	); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConcat, err)
	}

	report(opts.Progress, 0.5)

	if opts.TargetDuration > 0 {
		defer os.Remove(concatTarget)
		if _, err := t.invoke(ctx, t.ffmpeg,
			"-i", concatTarget,
			"-t", formatSeconds(opts.TargetDuration),
			"-c", "copy",
			"-y",
			outputPath,
		); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTrim, err)
		}
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("%w: output missing: %v", ErrConcat, err)
	}

	report(opts.Progress, 1)
	return outputPath, nil
}

// OverlayAudio muxes an audio track onto a video. The output ends with the
// shorter of the two inputs, avoiding silent or frozen tails.
func (t *Tool) OverlayAudio(ctx context.Context, videoPath, audioPath, outputPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure output dir: %v", ErrOverlay, err)
	}
	if _, err := t.invoke(ctx, t.ffmpeg,
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outputPath,
	); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOverlay, err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("%w: output missing: %v", ErrOverlay, err)
	}
	return outputPath, nil
}

// ImageToClip renders a still image into a video clip of the given duration.
func (t *Tool) ImageToClip(ctx context.Context, imagePath, outputPath string, duration float64) (string, error) {
	if duration <= 0 {
		duration = 3
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure output dir: %v", ErrClip, err)
	}
	if _, err := t.invoke(ctx, t.ffmpeg,
		"-loop", "1",
		"-i", imagePath,
		"-c:v", "libx264",
		"-t", formatSeconds(duration),
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	); err != nil {
		return "", fmt.Errorf("%w: %v", ErrClip, err)
	}
	return outputPath, nil
}

func writeConcatList(listPath string, clipPaths []string) error {
	var b strings.Builder
	for _, clip := range clipPaths {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		// Single quotes inside paths break the concat demuxer syntax.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return os.WriteFile(listPath, []byte(b.String()), 0o644)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func report(fn func(float64), fraction float64) {
	if fn != nil {
		fn(fraction)
	}
}
