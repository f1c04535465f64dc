package transcription

import (
	"context"
	"sync"
	"time"
)

// EventKind classifies recognition session events.
type EventKind int

const (
	// Recognized carries a finalized speech segment.
	Recognized EventKind = iota
	// NoMatch marks a stretch of audio without recognizable speech.
	NoMatch
	// Canceled ends the session early. A non-nil Err is fatal.
	Canceled
	// SessionStopped ends the session after all audio was processed.
	SessionStopped
)

func (k EventKind) String() string {
	switch k {
	case Recognized:
		return "recognized"
	case NoMatch:
		return "no_match"
	case Canceled:
		return "canceled"
	case SessionStopped:
		return "session_stopped"
	default:
		return "unknown"
	}
}

// Segment is one recognized phrase. SpeakerID is backend-specific and empty
// when diarization is unavailable.
type Segment struct {
	Text      string
	SpeakerID string
	Offset    time.Duration
	Duration  time.Duration
}

// Event is emitted by a Session. Segment is set for Recognized, Err for
// Canceled, and Duration (when known) for SessionStopped.
type Event struct {
	Kind     EventKind
	Segment  Segment
	Err      error
	Duration time.Duration
}

// Options configures a recognition session.
type Options struct {
	Language    string
	MaxSpeakers int
}

// Session is a running continuous recognition. The event channel closes after
// the terminal event.
type Session interface {
	Events() <-chan Event
	Close() error
}

// Recognizer starts continuous recognition over an audio file.
type Recognizer interface {
	Start(ctx context.Context, audioPath string, opts Options) (Session, error)
}

// stream is a Session fed by a producer goroutine.
type stream struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// startStream runs produce in a goroutine. produce sends through emit, which
// reports false once the consumer has closed the session or ctx is done.
func startStream(ctx context.Context, produce func(emit func(Event) bool)) *stream {
	s := &stream{
		events: make(chan Event),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.events)
		produce(func(ev Event) bool {
			select {
			case s.events <- ev:
				return true
			case <-s.done:
				return false
			case <-ctx.Done():
				return false
			}
		})
	}()

	return s
}

func (s *stream) Events() <-chan Event { return s.events }

func (s *stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
