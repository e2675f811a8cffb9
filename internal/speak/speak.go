// Package speak owns spoken output: text sanitization, voice choice and the
// single in-flight utterance.
package speak

import (
	"context"
	"log/slog"
	"sync"
)

const (
	DefaultLang  = "en-US"
	DefaultPitch = 1.0
	DefaultRate  = 1.1
)

// Utterance is one unit of synthesized speech.
type Utterance struct {
	Text  string
	Lang  string
	Pitch float64
	Rate  float64
	// Voice is nil when the engine default should be used.
	Voice *Voice
}

// Synthesizer is the speech engine used for output.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	Cancel(ctx context.Context) error
}

// VoiceNotifier is implemented by engines whose voice list can change at
// runtime. fn receives the full list on every change.
type VoiceNotifier interface {
	OnVoicesChanged(fn func([]Voice))
}

// Controller pre-empts any active utterance whenever new text is spoken.
type Controller struct {
	logger *slog.Logger
	synth  Synthesizer

	mu     sync.Mutex
	voices []Voice
}

// NewController builds a controller. A nil synthesizer disables speech.
// Engines implementing VoiceNotifier keep the voice cache current.
func NewController(logger *slog.Logger, synth Synthesizer) *Controller {
	c := &Controller{logger: logger, synth: synth}
	if synth == nil && logger != nil {
		logger.Warn("speech synthesis unsupported; spoken output disabled")
	}
	if notifier, ok := synth.(VoiceNotifier); ok {
		notifier.OnVoicesChanged(c.UpdateVoices)
	}
	return c
}

// UpdateVoices replaces the voice cache with the engine's latest list.
func (c *Controller) UpdateVoices(voices []Voice) {
	next := make([]Voice, len(voices))
	copy(next, voices)

	c.mu.Lock()
	c.voices = next
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("speech voices updated", "count", len(next))
	}
}

// Voices returns a snapshot of the voice cache.
func (c *Controller) Voices() []Voice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Speak sanitizes text and starts it as the only active utterance.
func (c *Controller) Speak(ctx context.Context, text string) {
	if c.synth == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	u := Utterance{
		Text:  Sanitize(text),
		Lang:  DefaultLang,
		Pitch: DefaultPitch,
		Rate:  DefaultRate,
	}
	if v, ok := SelectVoice(c.voices); ok {
		u.Voice = &v
	}

	if err := c.synth.Cancel(ctx); err != nil {
		c.logError("cancel utterance failed", err)
	}
	if err := c.synth.Speak(ctx, u); err != nil {
		c.logError("speak utterance failed", err)
		return
	}
	if c.logger != nil {
		voice := ""
		if u.Voice != nil {
			voice = u.Voice.Name
		}
		c.logger.Debug("utterance started", "chars", len(u.Text), "voice", voice)
	}
}

// Cancel silences the active utterance, if any.
func (c *Controller) Cancel(ctx context.Context) {
	if c.synth == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.synth.Cancel(ctx); err != nil {
		c.logError("cancel utterance failed", err)
	}
}

func (c *Controller) logError(msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, "error", err.Error())
}
