// Package transcription turns an audio file into text through a continuous
// recognition session, labeling speakers when the backend diarizes.
package transcription

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Utterance is a run of consecutive speech by one speaker.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Result is the complete transcription of one audio file.
type Result struct {
	Text            string      `json:"text"`
	Utterances      []Utterance `json:"utterances"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// DurationProber measures audio length when the backend does not report it.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Engine drives a Recognizer session to completion and assembles its segments.
type Engine struct {
	recognizer Recognizer
	prober     DurationProber
	opts       Options
	logger     *slog.Logger
}

// NewEngine creates an Engine. prober may be nil.
func NewEngine(recognizer Recognizer, prober DurationProber, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		recognizer: recognizer,
		prober:     prober,
		opts:       opts,
		logger:     logger.With("system", "transcription"),
	}
}

// Transcribe recognizes all speech in audioPath. It keeps reading through
// pauses until the session stops, so the text covers the whole recording.
// Audio without speech yields an empty Text and no error.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return Result{}, fmt.Errorf("%w: %s is not readable audio", ErrTranscription, audioPath)
	}

	session, err := e.recognizer.Start(ctx, audioPath, e.opts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: start session: %w", ErrTranscription, err)
	}
	defer session.Close()

	var (
		segments []Segment
		reported time.Duration
		noMatch  int
		start    = time.Now()
	)

loop:
	for {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %w", ErrTranscription, ctx.Err())
		case ev, ok := <-session.Events():
			if !ok {
				break loop
			}
			switch ev.Kind {
			case Recognized:
				if strings.TrimSpace(ev.Segment.Text) != "" {
					segments = append(segments, ev.Segment)
				}
			case NoMatch:
				noMatch++
			case Canceled:
				if ev.Err != nil {
					return Result{}, fmt.Errorf("%w: %w", ErrTranscription, ev.Err)
				}
				break loop
			case SessionStopped:
				reported = ev.Duration
				break loop
			}
		}
	}

	slices.SortStableFunc(segments, func(a, b Segment) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	result := Result{
		Text:       joinText(segments),
		Utterances: utterances(segments),
	}
	result.DurationSeconds = e.duration(ctx, audioPath, reported, segments)

	e.logger.Info("transcription complete",
		"segments", len(segments),
		"no_match", noMatch,
		"speakers", speakerCount(result.Utterances),
		"duration_seconds", result.DurationSeconds,
		"elapsed", time.Since(start),
	)

	return result, nil
}

func (e *Engine) duration(ctx context.Context, path string, reported time.Duration, segments []Segment) float64 {
	if reported > 0 {
		return round2(reported.Seconds())
	}

	if e.prober != nil {
		seconds, err := e.prober.Duration(ctx, path)
		if err == nil {
			return round2(seconds)
		}
		e.logger.Warn("duration lookup failed", "path", path, "error", err)
	}

	var end time.Duration
	for _, s := range segments {
		end = max(end, s.Offset+s.Duration)
	}
	return round2(end.Seconds())
}

func joinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}

// utterances labels speakers "Speaker 1", "Speaker 2", ... in order of first
// appearance and merges consecutive segments of the same speaker. Returns an
// empty slice when no segment carries a speaker id.
func utterances(segments []Segment) []Utterance {
	out := []Utterance{}
	labels := make(map[string]string)

	for _, s := range segments {
		if s.SpeakerID == "" {
			continue
		}

		label, ok := labels[s.SpeakerID]
		if !ok {
			label = "Speaker " + strconv.Itoa(len(labels)+1)
			labels[s.SpeakerID] = label
		}

		text := strings.TrimSpace(s.Text)
		if n := len(out); n > 0 && out[n-1].Speaker == label {
			out[n-1].Text += " " + text
			continue
		}
		out = append(out, Utterance{Speaker: label, Text: text})
	}

	return out
}

func speakerCount(us []Utterance) int {
	seen := make(map[string]struct{})
	for _, u := range us {
		seen[u.Speaker] = struct{}{}
	}
	return len(seen)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
