package transcription

import "errors"

var (
	// ErrTranscription reports unreadable audio or a fatal backend cancellation.
	ErrTranscription = errors.New("transcription failed")
	// ErrUnknownProvider reports an unsupported recognizer provider.
	ErrUnknownProvider = errors.New("unknown transcription provider")
)
