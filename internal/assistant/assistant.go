// Package assistant runs conversation turns: generate, parse, act, speak, record.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/damien/internal/directive"
)

var (
	// ErrNoGenerator indicates no AI backend is configured.
	ErrNoGenerator = errors.New("no response generator configured")
	// ErrQueueFull indicates the pending-turn queue cannot accept more input.
	ErrQueueFull = errors.New("turn queue is full")
)

// Assistant owns the conversation history and serializes turns.
type Assistant struct {
	generator  Generator
	dispatcher Dispatcher
	speaker    Speaker
	logger     *slog.Logger
	now        func() time.Time

	turnMu sync.Mutex

	mu          sync.Mutex
	messages    []Message
	suggestions []string
	analytics   []AnalyticsEntry

	queue chan Input
}

// New constructs an assistant. Nil dispatcher or speaker disable those effects.
func New(generator Generator, dispatcher Dispatcher, speaker Speaker, logger *slog.Logger) *Assistant {
	a := &Assistant{
		generator:  generator,
		dispatcher: dispatcher,
		speaker:    speaker,
		logger:     logger,
		now:        time.Now,
		queue:      make(chan Input, 16),
	}
	a.messages = []Message{{Role: RoleDamien, Content: Greeting, Timestamp: a.now()}}
	return a
}

// Send runs one turn synchronously. It reports false when the input is empty
// and nothing happened.
func (a *Assistant) Send(ctx context.Context, in Input) (Reply, bool) {
	if in.Text == "" && in.Attachment == nil {
		return Reply{}, false
	}
	if in.Kind == "" {
		in.Kind = KindText
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	command := in.Text
	if command == "" {
		command = "Analyzing file: " + in.Attachment.Name
	}
	user := Message{Role: RoleUser, Content: command, Timestamp: a.now()}
	if in.Attachment != nil {
		user.Attachment = in.Attachment.Name
	}

	a.mu.Lock()
	a.messages = append(a.messages, user)
	a.suggestions = nil
	a.mu.Unlock()

	raw, err := a.generate(ctx, Prompt{Text: in.Text, Attachment: in.Attachment})
	if err != nil {
		a.logError("generate response failed", err, "kind", string(in.Kind))
		msg := Message{Role: RoleDamien, Content: ErrorReply, Timestamp: a.now()}
		a.mu.Lock()
		a.messages = append(a.messages, msg)
		a.mu.Unlock()
		return Reply{Input: in, Message: msg, Err: err}, true
	}

	parsed := directive.Parse(raw)
	if parsed.Directive != nil && a.dispatcher != nil {
		a.dispatcher.Dispatch(ctx, *parsed.Directive)
	}

	msg := Message{Role: RoleDamien, Content: parsed.DisplayText, Timestamp: a.now()}
	a.mu.Lock()
	a.suggestions = append([]string(nil), parsed.Suggestions...)
	a.messages = append(a.messages, msg)
	a.mu.Unlock()

	if a.speaker != nil {
		a.speaker.Speak(ctx, parsed.SpeechText)
	}

	a.mu.Lock()
	a.analytics = append(a.analytics, AnalyticsEntry{
		Timestamp: a.now(),
		Command:   command,
		Response:  parsed.DisplayText,
		Kind:      in.Kind,
	})
	a.mu.Unlock()

	if a.logger != nil {
		a.logger.Info("turn complete",
			"kind", string(in.Kind),
			"directive", directiveKind(parsed.Directive),
			"suggestions", len(parsed.Suggestions),
		)
	}
	return Reply{Input: in, Message: msg, Parsed: parsed}, true
}

// Enqueue schedules in for the Run loop without blocking.
func (a *Assistant) Enqueue(in Input) error {
	select {
	case a.queue <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Commit queues a final voice transcript as a turn.
func (a *Assistant) Commit(_ context.Context, transcript string) error {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	if err := a.Enqueue(Input{Text: transcript, Kind: KindVoice}); err != nil {
		return fmt.Errorf("queue voice turn: %w", err)
	}
	return nil
}

// Run processes queued turns until ctx is cancelled. onReply may be nil.
func (a *Assistant) Run(ctx context.Context, onReply func(Reply)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case in := <-a.queue:
			reply, ok := a.Send(ctx, in)
			if ok && onReply != nil {
				onReply(reply)
			}
		}
	}
}

// SuggestionAt resolves a 1-based quick-reply index against the latest suggestions.
func (a *Assistant) SuggestionAt(n int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 1 || n > len(a.suggestions) {
		return "", false
	}
	return a.suggestions[n-1], true
}

// Messages returns a snapshot of the chat history.
func (a *Assistant) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.messages...)
}

// Suggestions returns the quick replies offered by the latest reply.
func (a *Assistant) Suggestions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.suggestions...)
}

// Analytics returns a snapshot of recorded interactions.
func (a *Assistant) Analytics() []AnalyticsEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AnalyticsEntry(nil), a.analytics...)
}

// InteractionCounts tallies recorded interactions by kind.
func (a *Assistant) InteractionCounts() map[Kind]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	counts := make(map[Kind]int)
	for _, entry := range a.analytics {
		counts[entry.Kind]++
	}
	return counts
}

func (a *Assistant) generate(ctx context.Context, prompt Prompt) (string, error) {
	if a.generator == nil {
		return "", ErrNoGenerator
	}
	return a.generator.Generate(ctx, prompt)
}

func directiveKind(d *directive.Directive) string {
	if d == nil {
		return ""
	}
	return string(d.Kind)
}

func (a *Assistant) logError(msg string, err error, args ...any) {
	if a.logger == nil || err == nil {
		return
	}
	a.logger.Error(msg, append([]any{"error", err.Error()}, args...)...)
}
