package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/damien/internal/assistant"
	"github.com/rbright/damien/internal/audio"
	"github.com/rbright/damien/internal/config"
	"github.com/rbright/damien/internal/dispatch"
	"github.com/rbright/damien/internal/engine"
	"github.com/rbright/damien/internal/fsm"
	"github.com/rbright/damien/internal/indicator"
	"github.com/rbright/damien/internal/ipc"
	"github.com/rbright/damien/internal/listen"
	"github.com/rbright/damien/internal/platform"
	"github.com/rbright/damien/internal/speak"
)

// owner is the running assistant: chat history, microphone and voice.
type owner struct {
	assistant *assistant.Assistant
	listen    *listen.Controller
	speech    *speak.Controller
	indicator *indicator.Notifier
	console   *console
	logger    *slog.Logger
	// refreshVoices re-enumerates engine voices; nil without a voice list command.
	refreshVoices func(context.Context) error
}

// modelNamer is implemented by generators that report their model.
type modelNamer interface {
	Model() string
}

const voiceRefreshTimeout = 5 * time.Second

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	var listener net.Listener
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; remote control disabled\n", err)
		logger.Warn("ipc disabled", "error", err.Error())
	} else {
		listener, err = ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			if !errors.Is(err, ipc.ErrAlreadyRunning) {
				logger.Error("acquire socket failed", "error", err.Error())
			}
			return 1
		}
		defer func() {
			_ = listener.Close()
			_ = os.Remove(socketPath)
		}()
	}

	o := r.newOwner(ctx, cfg, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if o.refreshVoices != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.voiceRefresh(runCtx); err != nil {
				logger.Warn("voice list refresh failed", "error", err.Error())
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = o.listen.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		_ = o.assistant.Run(runCtx, o.console.voiceReply)
	}()

	serverErrCh := make(chan error, 1)
	if listener != nil {
		go func() {
			serverErrCh <- ipc.Serve(runCtx, listener, o)
		}()
	} else {
		serverErrCh <- nil
	}

	o.console.greet(o.assistant.Messages())
	chatErr := o.chat(runCtx, r.Stdin)

	cancel()
	wg.Wait()
	o.speech.Cancel(context.Background())
	if o.indicator != nil {
		o.indicator.Wait()
	}

	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if chatErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", chatErr)
		return 1
	}

	logger.Info("assistant stopped", "interactions", len(o.assistant.Analytics()))
	return 0
}

// newOwner wires engines, platform and assistant from config. Missing
// engines degrade to text-only operation.
func (r Runner) newOwner(ctx context.Context, cfg config.Config, logger *slog.Logger) *owner {
	out := newConsole(r.Stdout)

	generator, err := r.newGenerator(ctx, cfg.Gemini)
	if err != nil {
		out.warn(fmt.Sprintf("%v; replies are unavailable", err))
		logger.Warn("generator unavailable", "error", err.Error())
	} else if named, ok := generator.(modelNamer); ok {
		logger.Info("generator ready", "model", named.Model())
	}

	desk := platform.New(cfg.Platform, out, logger)
	dispatcher := dispatch.New(desk, cfg.Platform.SearchURL, logger)

	var synth speak.Synthesizer
	var refreshVoices func(context.Context) error
	if len(cfg.Speech.Command.Argv) > 0 {
		cmdSynth := engine.NewCommandSynthesizer(cfg.Speech.Command.Argv, speechVoices(cfg.Speech.Voices), logger)
		if len(cfg.Speech.VoicesCommand.Argv) > 0 {
			cmdSynth.UseVoiceList(cfg.Speech.VoicesCommand.Argv)
			refreshVoices = cmdSynth.RefreshVoices
		}
		synth = cmdSynth
	}
	speech := speak.NewController(logger, synth)

	asst := assistant.New(generator, dispatcher, speech, logger)

	var recognizer listen.Recognizer
	if len(cfg.Listen.Command.Argv) > 0 {
		cmdRec := engine.NewCommandRecognizer(cfg.Listen.Command.Argv, logger)
		cmdRec.UseLang(cfg.Listen.Lang)
		if device, ok := selectInputDevice(ctx, cfg.Audio, logger); ok {
			cmdRec.UseDevice(device)
		}
		recognizer = cmdRec
	}

	var notifier *indicator.Notifier
	var ind listen.Indicator
	if cfg.Indicator.Enable || cfg.Indicator.SoundEnable {
		notifier = indicator.New(cfg.Indicator, logger)
		ind = notifier
	}

	ctl := listen.NewController(logger, recognizer, asst, ind)
	ctl.SetSessionLimit(time.Duration(cfg.Listen.MaxSessionMS) * time.Millisecond)

	return &owner{
		assistant: asst,
		listen:    ctl,
		speech:    speech,
		indicator: notifier,
		console:   out,
		logger:    logger,

		refreshVoices: refreshVoices,
	}
}

func (o *owner) voiceRefresh(ctx context.Context) error {
	if o.refreshVoices == nil {
		return nil
	}
	refreshCtx, cancel := context.WithTimeout(ctx, voiceRefreshTimeout)
	defer cancel()
	return o.refreshVoices(refreshCtx)
}

// selectInputDevice resolves the configured source; failures leave the
// recognizer on its own default.
func selectInputDevice(ctx context.Context, cfg config.AudioConfig, logger *slog.Logger) (string, bool) {
	selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		logger.Debug("input device selection skipped", "error", err.Error())
		return "", false
	}
	if selection.Warning != "" {
		logger.Warn("input device fallback", "warning", selection.Warning)
	}
	return selection.Device.ID, true
}

func speechVoices(cfg []config.VoiceConfig) []speak.Voice {
	voices := make([]speak.Voice, 0, len(cfg))
	for _, v := range cfg {
		voices = append(voices, speak.Voice{Name: v.Name, Lang: v.Lang})
	}
	return voices
}

// Handle answers remote-control requests on the owner socket.
func (o *owner) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(o.listen.State()), Suggestions: o.assistant.Suggestions()}
	case ipc.CommandListen:
		return o.startListening(ctx)
	case ipc.CommandStop:
		return o.stopListening(ctx)
	case ipc.CommandToggle:
		if o.listen.State() == fsm.StateListening {
			return o.stopListening(ctx)
		}
		return o.startListening(ctx)
	case ipc.CommandAsk:
		return o.ask(ctx, req.Text)
	default:
		return ipc.Response{OK: false, State: string(o.listen.State()), Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (o *owner) startListening(ctx context.Context) ipc.Response {
	if err := o.listen.StartListening(ctx); err != nil {
		return ipc.Failure(string(o.listen.State()), err)
	}
	return ipc.Response{OK: true, State: string(o.listen.State()), Message: "listening"}
}

func (o *owner) stopListening(ctx context.Context) ipc.Response {
	if err := o.listen.StopListening(ctx); err != nil {
		return ipc.Failure(string(o.listen.State()), err)
	}
	return ipc.Response{OK: true, State: string(o.listen.State()), Message: "stopped"}
}

func (o *owner) ask(ctx context.Context, text string) ipc.Response {
	text = strings.TrimSpace(text)
	if text == "" {
		return ipc.Response{OK: false, State: string(o.listen.State()), Error: "ask requires a message"}
	}

	o.console.userLine(assistant.KindText, text)
	reply, _ := o.assistant.Send(ctx, assistant.Input{Text: text, Kind: assistant.KindText})
	o.console.reply(reply)
	if reply.Err != nil {
		return ipc.Response{OK: false, State: string(o.listen.State()), Message: reply.Message.Content, Error: reply.Err.Error()}
	}
	return ipc.Response{
		OK:          true,
		State:       string(o.listen.State()),
		Message:     reply.Message.Content,
		Suggestions: reply.Parsed.Suggestions,
	}
}
