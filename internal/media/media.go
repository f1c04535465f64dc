// Package media converts uploaded presentations into audio suitable for speech
// recognition by driving the ffmpeg toolchain as a subprocess.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/orator/pkg/lifecycle"
)

// ErrTranscode reports that the media could not be decoded or converted.
var ErrTranscode = errors.New("transcode failed")

// CommandResult captures the output of one subprocess invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Config locates the toolchain and shapes the extracted audio.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	SampleRate  int
	Timeout     time.Duration
}

// Option customizes a Transcoder.
type Option func(*Transcoder)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(t *Transcoder) { t.runner = r }
}

// Transcoder extracts mono PCM audio and reads media duration with ffprobe.
type Transcoder struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// New creates a Transcoder. Zero config fields fall back to ffmpeg, ffprobe,
// 16 kHz and a 30 minute timeout.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Minute
	}

	t := &Transcoder{
		cfg:    cfg,
		runner: execRunner{},
		logger: logger.With("system", "media"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start registers a readiness check confirming ffmpeg and ffprobe are runnable.
func (t *Transcoder) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("media", func(ctx context.Context) error {
		for _, bin := range []string{t.cfg.FFmpegPath, t.cfg.FFprobePath} {
			res, err := t.runner.Run(ctx, bin, "-version")
			if err != nil {
				return fmt.Errorf("%s unavailable: %w", bin, err)
			}
			t.logger.Info("toolchain ready", "binary", bin, "version", firstLine(res.Stdout))
		}
		return nil
	})
	return nil
}

// Extract writes the audio track of in to out as mono 16-bit PCM WAV.
// Any failure, including a missing or empty output file, wraps ErrTranscode.
func (t *Transcoder) Extract(ctx context.Context, in, out string) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	args := t.extractArgs(in, out)
	start := time.Now()

	res, err := t.runner.Run(ctx, t.cfg.FFmpegPath, args...)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg exit %d: %s", ErrTranscode, res.ExitCode, lastLine(res.Stderr))
	}

	info, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("%w: output missing: %w", ErrTranscode, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: output is empty", ErrTranscode)
	}

	t.logger.Info("audio extracted", "input", in, "bytes", info.Size(), "elapsed", time.Since(start))
	return nil
}

// Duration returns the container duration of path in seconds.
func (t *Transcoder) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	res, err := t.runner.Run(ctx, t.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe exit %d: %s", ErrTranscode, res.ExitCode, lastLine(res.Stderr))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrTranscode, strings.TrimSpace(res.Stdout))
	}
	return seconds, nil
}

// Split cuts the audio at in into consecutive pieces of at most every length,
// written to dir, and returns their paths in playback order. Pieces are
// stream copies, so they keep the format of in.
func (t *Transcoder) Split(ctx context.Context, in, dir string, every time.Duration) ([]string, error) {
	if every < time.Second {
		return nil, fmt.Errorf("%w: segment length %v too short", ErrTranscode, every)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	ext := filepath.Ext(in)
	res, err := t.runner.Run(ctx, t.cfg.FFmpegPath,
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-f", "segment",
		"-segment_time", strconv.Itoa(int(every.Seconds())),
		"-reset_timestamps", "1",
		"-c", "copy",
		filepath.Join(dir, "segment-%03d"+ext),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg exit %d: %s", ErrTranscode, res.ExitCode, lastLine(res.Stderr))
	}

	pieces, err := filepath.Glob(filepath.Join(dir, "segment-*"+ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: split produced no segments", ErrTranscode)
	}
	slices.Sort(pieces)

	t.logger.Info("audio split", "input", in, "segments", len(pieces), "every", every)
	return pieces, nil
}

func (t *Transcoder) extractArgs(in, out string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(t.cfg.SampleRate),
		"-c:a", "pcm_s16le",
		out,
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
