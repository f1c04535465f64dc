package insight

import "errors"

var (
	ErrEmptyTranscript = errors.New("transcript is empty")
	ErrReviewFailed    = errors.New("insight review failed")
)
