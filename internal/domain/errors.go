package domain

import (
	"errors"
	"fmt"
	"strings"
)

// tokenLimitMarker is the substring OpenAI-compatible backends put in the
// fault description when a request exceeds the model's context window.
const tokenLimitMarker = "context_length_exceeded"

// ErrInterrupted is returned when the cooperative cancellation check observes
// the stop signal set mid-stream. It is always surfaced to the caller and
// never retried by the consumer.
var ErrInterrupted = errors.New("completion interrupted by stop signal")

// TokenLimitError indicates the request exceeded the model's context window.
// It wraps the transport fault it was classified from.
type TokenLimitError struct {
	Cause error
}

func (e *TokenLimitError) Error() string {
	return fmt.Sprintf("token limit exceeded: %v", e.Cause)
}

func (e *TokenLimitError) Unwrap() error {
	return e.Cause
}

// ClassifyStreamError maps a transport fault to the consumer's error
// taxonomy. Context-window overflows become TokenLimitError; anything else
// propagates unchanged.
func ClassifyStreamError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), tokenLimitMarker) {
		return &TokenLimitError{Cause: err}
	}
	return err
}
