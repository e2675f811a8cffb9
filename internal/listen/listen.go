// Package listen owns the microphone session lifecycle and its transcript.
package listen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/damien/internal/fsm"
)

const eventDeadline fsm.Event = "deadline"

// Indicator is the controller-facing subset of indicator behavior. An empty
// ShowError text selects the indicator's configured error message.
type Indicator interface {
	ShowListening(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves controller flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) Hide(context.Context)              {}

// Controller is the single owner of recognition state. Engine events are
// applied by Run; user commands go through StartListening/StopListening.
type Controller struct {
	logger     *slog.Logger
	recognizer Recognizer
	commit     Committer
	indicator  Indicator

	mu         sync.Mutex
	state      fsm.State
	live       string
	session    uint64
	maxSession time.Duration
	deadline   *time.Timer

	events chan Event
	done   chan struct{}
}

// NewController constructs a controller. A nil recognizer means recognition
// is unsupported and StartListening reports ErrRecognitionUnavailable.
func NewController(
	logger *slog.Logger,
	recognizer Recognizer,
	committer Committer,
	indicator Indicator,
) *Controller {
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		logger:     logger,
		recognizer: recognizer,
		commit:     committer,
		indicator:  indicator,
		state:      fsm.StateIdle,
		events:     make(chan Event, 32),
		done:       make(chan struct{}),
	}
}

// SetSessionLimit bounds how long one session may stay listening.
// Zero disables the limit.
func (c *Controller) SetSessionLimit(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.maxSession = d
}

// Events returns the channel engines post notifications to.
func (c *Controller) Events() chan<- Event {
	return c.events
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LiveTranscript returns the latest interim text of the active session.
func (c *Controller) LiveTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Run applies engine events until ctx is cancelled, then stops any active session.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
			_ = c.StopListening(stopCtx)
			cancel()
			return nil
		case ev := <-c.events:
			c.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one engine event synchronously.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case fsm.EventPartial:
		c.onPartial(ev.Text)
	case fsm.EventFinal:
		c.onFinal(ctx, ev.Text)
	case fsm.EventError:
		c.onError(ctx, ev.Err)
	case fsm.EventEnd:
		c.onEnd(ctx)
	case eventDeadline:
		c.onDeadline(ctx, ev.session)
	default:
		c.logDebug("ignored unknown recognition event", "event", string(ev.Kind))
	}
}

// StartListening begins a session. It is a no-op while already listening.
func (c *Controller) StartListening(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recognizer == nil {
		c.logWarn("speech recognition not supported; start ignored")
		return ErrRecognitionUnavailable
	}
	if c.state == fsm.StateListening {
		return nil
	}

	if err := c.recognizer.Start(ctx, DefaultRecognitionConfig(), c.events); err != nil {
		c.logError("speech recognition start failed", err)
		c.indicator.ShowError(ctx, "Unable to start listening")
		return fmt.Errorf("start recognition: %w", err)
	}
	if !c.apply(fsm.EventStart) {
		return nil
	}

	c.session++
	c.armDeadline(c.session)
	c.indicator.ShowListening(ctx)
	c.logInfo("listening started", "session", c.session)
	return nil
}

// StopListening ends the active session. It is a no-op while idle.
func (c *Controller) StopListening(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) error {
	if c.state != fsm.StateListening {
		return nil
	}

	err := c.stopEngine(ctx)
	c.apply(fsm.EventStop)
	c.leaveListening(ctx)
	if err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

func (c *Controller) onPartial(text string) {
	if c.state != fsm.StateListening {
		c.logDebug("ignored partial result while idle")
		return
	}
	c.apply(fsm.EventPartial)
	c.live = text
}

func (c *Controller) onFinal(ctx context.Context, text string) {
	if c.state != fsm.StateListening {
		c.logDebug("ignored final result while idle")
		return
	}

	transcript := strings.TrimSpace(text)
	if err := c.commit.Commit(ctx, transcript); err != nil {
		c.logError("commit transcript failed", err)
	}

	_ = c.stopEngine(ctx)
	c.apply(fsm.EventFinal)
	c.live = ""
	c.leaveListening(ctx)
	c.logInfo("final transcript committed", "transcript_length", len(transcript))
}

// onError hides the listening surface before showing the error. The live
// transcript is left for the end event that follows.
func (c *Controller) onError(ctx context.Context, err error) {
	c.logError("speech recognition error", err)
	if c.state != fsm.StateListening {
		return
	}
	c.apply(fsm.EventError)
	c.leaveListening(ctx)
	c.indicator.ShowError(ctx, "")
}

func (c *Controller) onEnd(ctx context.Context) {
	wasListening := c.state == fsm.StateListening
	c.apply(fsm.EventEnd)
	c.live = ""
	if wasListening {
		c.leaveListening(ctx)
	}
}

func (c *Controller) onDeadline(ctx context.Context, session uint64) {
	if c.state != fsm.StateListening || session != c.session {
		return
	}
	c.logWarn("listening session limit reached; stopping", "limit_ms", c.maxSession.Milliseconds())
	_ = c.stopLocked(ctx)
}

// apply runs one FSM transition; invalid transitions are no-ops.
func (c *Controller) apply(event fsm.Event) bool {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.logDebug("ignored recognition transition", "error", err.Error())
		return false
	}
	c.state = next
	return true
}

func (c *Controller) stopEngine(ctx context.Context) error {
	if err := c.recognizer.Stop(ctx); err != nil {
		c.logError("speech recognition stop failed", err)
		return err
	}
	return nil
}

func (c *Controller) leaveListening(ctx context.Context) {
	c.disarmDeadline()
	c.indicator.CueStop(ctx)
	c.indicator.Hide(ctx)
}

func (c *Controller) armDeadline(session uint64) {
	c.disarmDeadline()
	if c.maxSession <= 0 {
		return
	}
	c.deadline = time.AfterFunc(c.maxSession, func() {
		select {
		case c.events <- Event{Kind: eventDeadline, session: session}:
		case <-c.done:
		}
	})
}

func (c *Controller) disarmDeadline() {
	if c.deadline == nil {
		return
	}
	c.deadline.Stop()
	c.deadline = nil
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Controller) logError(msg string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error(msg, "error", err.Error())
}
