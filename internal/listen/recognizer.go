package listen

import (
	"context"
	"errors"

	"github.com/rbright/damien/internal/fsm"
)

// ErrRecognitionUnavailable indicates no recognition engine is wired.
var ErrRecognitionUnavailable = errors.New("speech recognition is not supported in this environment")

// RecognitionConfig is the capture configuration requested from an engine.
type RecognitionConfig struct {
	Continuous     bool
	InterimResults bool
	Lang           string
}

// DefaultRecognitionConfig returns continuous en-US capture with interim results.
func DefaultRecognitionConfig() RecognitionConfig {
	return RecognitionConfig{Continuous: true, InterimResults: true, Lang: "en-US"}
}

// Recognizer is the speech-to-text engine driven by the controller.
// Engines report results by sending Events on the channel passed to Start,
// and must send an end event whenever a session terminates.
type Recognizer interface {
	Start(ctx context.Context, cfg RecognitionConfig, events chan<- Event) error
	Stop(ctx context.Context) error
}

// Event is one asynchronous notification from the recognition engine.
type Event struct {
	Kind fsm.Event
	Text string
	Err  error

	session uint64
}

// Partial builds an interim-result event.
func Partial(text string) Event { return Event{Kind: fsm.EventPartial, Text: text} }

// Final builds a committed-result event.
func Final(text string) Event { return Event{Kind: fsm.EventFinal, Text: text} }

// Failure builds an engine error event.
func Failure(err error) Event { return Event{Kind: fsm.EventError, Err: err} }

// Ended builds a session-terminated event.
func Ended() Event { return Event{Kind: fsm.EventEnd} }
