package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/rbright/damien/internal/fsm"
	"github.com/rbright/damien/internal/listen"
)

// CommandRecognizer streams transcripts from an external STT command.
//
// The command writes one result per line to stdout: "partial<TAB>text",
// "final<TAB>text", or bare text (treated as final).
type CommandRecognizer struct {
	argv   []string
	logger *slog.Logger
	device string
	lang   string

	mu   sync.Mutex
	cmd  *exec.Cmd
	quit chan struct{}
}

// NewCommandRecognizer builds a recognizer for argv. {lang} and {device}
// are replaced at start.
func NewCommandRecognizer(argv []string, logger *slog.Logger) *CommandRecognizer {
	return &CommandRecognizer{argv: append([]string(nil), argv...), logger: logger}
}

// UseDevice sets the capture source passed as {device}.
func (r *CommandRecognizer) UseDevice(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device = strings.TrimSpace(id)
}

// UseLang overrides the language requested by the controller.
func (r *CommandRecognizer) UseLang(lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lang = strings.TrimSpace(lang)
}

// Start spawns the recognizer process and streams its results into events.
func (r *CommandRecognizer) Start(_ context.Context, cfg listen.RecognitionConfig, events chan<- listen.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return errors.New("recognizer already running")
	}

	if r.lang != "" {
		cfg.Lang = r.lang
	}
	argv := expandArgv(r.argv, map[string]string{"lang": cfg.Lang, "device": r.device})
	if len(argv) == 0 {
		return errors.New("recognizer argv cannot be empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout for %s: %w", argv[0], err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := startGroup(cmd); err != nil {
		return fmt.Errorf("start recognizer %s: %w", argv[0], err)
	}

	quit := make(chan struct{})
	r.cmd = cmd
	r.quit = quit
	r.logDebug("recognizer started", "command", argv[0], "lang", cfg.Lang)

	go r.stream(cmd, stdout, &stderr, quit, cfg, events)
	return nil
}

// Stop kills the active recognizer process. Events from a stopped process
// are discarded.
func (r *CommandRecognizer) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil
	}
	close(r.quit)
	cmd := r.cmd
	r.cmd = nil
	r.quit = nil

	if err := killGroup(cmd); err != nil {
		return fmt.Errorf("kill recognizer: %w", err)
	}
	return nil
}

func (r *CommandRecognizer) stream(
	cmd *exec.Cmd,
	stdout io.Reader,
	stderr *bytes.Buffer,
	quit chan struct{},
	cfg listen.RecognitionConfig,
	events chan<- listen.Event,
) {
	send := func(ev listen.Event) bool {
		select {
		case <-quit:
			return false
		default:
		}
		select {
		case events <- ev:
			return true
		case <-quit:
			return false
		}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		ev, ok := parseResultLine(scanner.Text())
		if !ok {
			continue
		}
		if ev.Kind == fsm.EventPartial && !cfg.InterimResults {
			continue
		}
		if !send(ev) {
			break
		}
	}
	// Drain so Wait does not block on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	r.mu.Lock()
	if r.cmd == cmd {
		r.cmd = nil
		r.quit = nil
	}
	r.mu.Unlock()

	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, msg)
		}
		send(listen.Failure(fmt.Errorf("recognizer exited: %w", waitErr)))
	}
	send(listen.Ended())
}

func parseResultLine(line string) (listen.Event, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return listen.Event{}, false
	}

	kind, text, found := strings.Cut(line, "\t")
	if !found {
		return listen.Final(line), true
	}
	switch kind {
	case "partial":
		return listen.Partial(text), true
	case "final":
		return listen.Final(text), true
	default:
		return listen.Final(line), true
	}
}

func (r *CommandRecognizer) logDebug(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, args...)
}
