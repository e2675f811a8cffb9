package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rbright/damien/internal/speak"
)

// CommandSynthesizer speaks utterances through an external TTS command.
// The utterance text is written to the command's stdin.
type CommandSynthesizer struct {
	argv   []string
	logger *slog.Logger

	refreshMu sync.Mutex

	mu       sync.Mutex
	cmd      *exec.Cmd
	voices   []speak.Voice
	listArgv []string
	onVoices func([]speak.Voice)
}

// NewCommandSynthesizer builds a synthesizer for argv. Supported placeholders
// are {voice}, {lang}, {rate} and {pitch}.
func NewCommandSynthesizer(argv []string, voices []speak.Voice, logger *slog.Logger) *CommandSynthesizer {
	return &CommandSynthesizer{
		argv:   append([]string(nil), argv...),
		voices: append([]speak.Voice(nil), voices...),
		logger: logger,
	}
}

// Voices returns the voices this engine advertises.
func (s *CommandSynthesizer) Voices() []speak.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]speak.Voice(nil), s.voices...)
}

// OnVoicesChanged registers fn for voice list changes and delivers the
// current list immediately.
func (s *CommandSynthesizer) OnVoicesChanged(fn func([]speak.Voice)) {
	s.mu.Lock()
	s.onVoices = fn
	voices := append([]speak.Voice(nil), s.voices...)
	s.mu.Unlock()

	if fn != nil {
		fn(voices)
	}
}

// UseVoiceList sets the command RefreshVoices runs. It prints one voice per
// line as "name<TAB>lang"; the lang column is optional.
func (s *CommandSynthesizer) UseVoiceList(argv []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listArgv = append([]string(nil), argv...)
}

// RefreshVoices re-enumerates voices and notifies the subscriber when the
// list changed. It is a no-op without a voice list command.
func (s *CommandSynthesizer) RefreshVoices(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	argv := s.listArgv
	s.mu.Unlock()
	if len(argv) == 0 {
		return nil
	}

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fmt.Errorf("list voices %s: %w", argv[0], err)
	}
	voices := parseVoiceList(string(out))

	s.mu.Lock()
	changed := !slices.Equal(voices, s.voices)
	if changed {
		s.voices = voices
	}
	fn := s.onVoices
	s.mu.Unlock()

	if changed {
		s.logDebug("voice list changed", "count", len(voices))
		if fn != nil {
			fn(append([]speak.Voice(nil), voices...))
		}
	}
	return nil
}

func parseVoiceList(out string) []speak.Voice {
	var voices []speak.Voice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, lang, _ := strings.Cut(line, "\t")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		voices = append(voices, speak.Voice{Name: name, Lang: strings.TrimSpace(lang)})
	}
	return voices
}

// Speak starts the TTS process and returns without waiting for playback.
func (s *CommandSynthesizer) Speak(_ context.Context, u speak.Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}

	voice := ""
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	argv := expandArgv(s.argv, map[string]string{
		"voice": voice,
		"lang":  u.Lang,
		"rate":  strconv.FormatFloat(u.Rate, 'f', -1, 64),
		"pitch": strconv.FormatFloat(u.Pitch, 'f', -1, 64),
	})
	if len(argv) == 0 {
		return errors.New("synthesizer argv cannot be empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(u.Text)
	if err := startGroup(cmd); err != nil {
		return fmt.Errorf("start synthesizer %s: %w", argv[0], err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	go s.reap(cmd, argv[0])
	return nil
}

// Cancel kills the in-flight utterance, if any.
func (s *CommandSynthesizer) Cancel(context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if err := killGroup(cmd); err != nil {
		return fmt.Errorf("kill synthesizer: %w", err)
	}
	return nil
}

func (s *CommandSynthesizer) reap(cmd *exec.Cmd, name string) {
	err := cmd.Wait()

	s.mu.Lock()
	current := s.cmd == cmd
	if current {
		s.cmd = nil
	}
	s.mu.Unlock()

	// A cancelled process exits with a kill signal; only report natural failures.
	if err != nil && current && s.logger != nil {
		s.logger.Error("synthesizer exited with error", "command", name, "error", err.Error())
	}
}

func (s *CommandSynthesizer) logDebug(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, args...)
}
