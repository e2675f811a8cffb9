package listen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/damien/internal/fsm"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	startErr   error
	stopErr    error
	startCalls atomic.Int32
	stopCalls  atomic.Int32

	mu     sync.Mutex
	cfg    RecognitionConfig
	events chan<- Event
}

func (f *fakeRecognizer) Start(_ context.Context, cfg RecognitionConfig, events chan<- Event) error {
	f.startCalls.Add(1)
	f.mu.Lock()
	f.cfg = cfg
	f.events = events
	f.mu.Unlock()
	return f.startErr
}

func (f *fakeRecognizer) Stop(context.Context) error {
	f.stopCalls.Add(1)
	return f.stopErr
}

type fakeIndicator struct {
	listening atomic.Int32
	errors    atomic.Int32
	stopCues  atomic.Int32
	hides     atomic.Int32
}

func (f *fakeIndicator) ShowListening(context.Context)     { f.listening.Add(1) }
func (f *fakeIndicator) ShowError(context.Context, string) { f.errors.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)           { f.stopCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)              { f.hides.Add(1) }

type orderedIndicator struct {
	calls []string
}

func (o *orderedIndicator) ShowListening(context.Context)     { o.calls = append(o.calls, "listening") }
func (o *orderedIndicator) ShowError(context.Context, string) { o.calls = append(o.calls, "error") }
func (o *orderedIndicator) CueStop(context.Context)           { o.calls = append(o.calls, "cue-stop") }
func (o *orderedIndicator) Hide(context.Context)              { o.calls = append(o.calls, "hide") }

type recordingCommitter struct {
	mu          sync.Mutex
	transcripts []string
	err         error
}

func (r *recordingCommitter) Commit(_ context.Context, transcript string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, transcript)
	return r.err
}

func (r *recordingCommitter) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcripts...)
}

func newTestController(t *testing.T) (*Controller, *fakeRecognizer, *recordingCommitter, *fakeIndicator) {
	t.Helper()
	rec := &fakeRecognizer{}
	commit := &recordingCommitter{}
	ind := &fakeIndicator{}
	return NewController(nil, rec, commit, ind), rec, commit, ind
}

func TestStartListeningConfiguresEngine(t *testing.T) {
	ctrl, rec, _, ind := newTestController(t)

	require.NoError(t, ctrl.StartListening(context.Background()))
	require.Equal(t, fsm.StateListening, ctrl.State())
	require.Equal(t, RecognitionConfig{Continuous: true, InterimResults: true, Lang: "en-US"}, rec.cfg)
	require.Equal(t, int32(1), ind.listening.Load())
}

func TestStartListeningWhileListeningIsNoop(t *testing.T) {
	ctrl, rec, _, _ := newTestController(t)

	require.NoError(t, ctrl.StartListening(context.Background()))
	require.NoError(t, ctrl.StartListening(context.Background()))
	require.Equal(t, fsm.StateListening, ctrl.State())
	require.Equal(t, int32(1), rec.startCalls.Load())
}

func TestStopListeningWhileIdleIsNoop(t *testing.T) {
	ctrl, rec, _, ind := newTestController(t)

	require.NoError(t, ctrl.StopListening(context.Background()))
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(0), rec.stopCalls.Load())
	require.Equal(t, int32(0), ind.hides.Load())
}

func TestStopListeningStopsEngine(t *testing.T) {
	ctrl, rec, _, ind := newTestController(t)

	require.NoError(t, ctrl.StartListening(context.Background()))
	require.NoError(t, ctrl.StopListening(context.Background()))
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(1), rec.stopCalls.Load())
	require.Equal(t, int32(1), ind.stopCues.Load())
	require.Equal(t, int32(1), ind.hides.Load())
}

func TestStopListeningReportsEngineErrorButGoesIdle(t *testing.T) {
	ctrl, rec, _, _ := newTestController(t)
	rec.stopErr = errors.New("engine wedged")

	require.NoError(t, ctrl.StartListening(context.Background()))
	err := ctrl.StopListening(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine wedged")
	require.Equal(t, fsm.StateIdle, ctrl.State())
}

func TestStartListeningEngineFailureStaysIdle(t *testing.T) {
	ctrl, rec, _, ind := newTestController(t)
	rec.startErr = errors.New("mic busy")

	err := ctrl.StartListening(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "start recognition")
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(1), ind.errors.Load())
	require.Equal(t, int32(0), ind.listening.Load())
}

func TestStartListeningWithoutRecognizer(t *testing.T) {
	ctrl := NewController(nil, nil, nil, nil)

	err := ctrl.StartListening(context.Background())
	require.ErrorIs(t, err, ErrRecognitionUnavailable)
	require.Equal(t, fsm.StateIdle, ctrl.State())
}

func TestPartialResultUpdatesLiveTranscript(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	ctx := context.Background()

	ctrl.HandleEvent(ctx, Partial("ignored while idle"))
	require.Empty(t, ctrl.LiveTranscript())

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Partial("open"))
	ctrl.HandleEvent(ctx, Partial("open you"))
	require.Equal(t, "open you", ctrl.LiveTranscript())
	require.Equal(t, fsm.StateListening, ctrl.State())
}

func TestFinalResultCommitsTrimmedTextAndGoesIdle(t *testing.T) {
	ctrl, rec, commit, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Partial("open youtube"))
	ctrl.HandleEvent(ctx, Final("  open youtube  "))

	require.Equal(t, []string{"open youtube"}, commit.all())
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Empty(t, ctrl.LiveTranscript())
	require.Equal(t, int32(1), rec.stopCalls.Load())
}

func TestFinalResultAfterStopIsIgnored(t *testing.T) {
	ctrl, _, commit, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	require.NoError(t, ctrl.StopListening(ctx))
	ctrl.HandleEvent(ctx, Final("late words"))

	require.Empty(t, commit.all())
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Empty(t, ctrl.LiveTranscript())
}

func TestFinalResultCommitErrorStillGoesIdle(t *testing.T) {
	ctrl, _, commit, _ := newTestController(t)
	commit.err = errors.New("queue full")
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Final("hello"))
	require.Equal(t, fsm.StateIdle, ctrl.State())
}

func TestErrorThenEndIsIdempotent(t *testing.T) {
	ctrl, _, _, ind := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Partial("half a thou"))
	ctrl.HandleEvent(ctx, Failure(errors.New("network")))

	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, "half a thou", ctrl.LiveTranscript())
	require.Equal(t, int32(1), ind.errors.Load())
	require.Equal(t, int32(1), ind.hides.Load())
	require.Equal(t, int32(1), ind.stopCues.Load())

	ctrl.HandleEvent(ctx, Ended())
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Empty(t, ctrl.LiveTranscript())

	ctrl.HandleEvent(ctx, Ended())
	ctrl.HandleEvent(ctx, Failure(errors.New("late")))
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(1), ind.errors.Load())
	require.Equal(t, int32(1), ind.hides.Load())
	require.Equal(t, int32(1), ind.stopCues.Load())
}

func TestErrorHidesListeningBeforeShowingError(t *testing.T) {
	rec := &fakeRecognizer{}
	ind := &orderedIndicator{}
	ctrl := NewController(nil, rec, &recordingCommitter{}, ind)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Failure(errors.New("no microphone")))
	ctrl.HandleEvent(ctx, Ended())

	require.Equal(t, []string{"listening", "cue-stop", "hide", "error"}, ind.calls)
}

func TestEndWhileListeningClearsTranscript(t *testing.T) {
	ctrl, _, _, ind := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Partial("silence follows"))
	ctrl.HandleEvent(ctx, Ended())

	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Empty(t, ctrl.LiveTranscript())
	require.Equal(t, int32(1), ind.hides.Load())
}

func TestRestartAfterFinal(t *testing.T) {
	ctrl, rec, commit, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Final("one"))
	require.NoError(t, ctrl.StartListening(ctx))
	ctrl.HandleEvent(ctx, Final("two"))

	require.Equal(t, []string{"one", "two"}, commit.all())
	require.Equal(t, int32(2), rec.startCalls.Load())
}

func TestRunAppliesEngineEvents(t *testing.T) {
	ctrl, rec, commit, _ := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run(ctx)
	}()

	require.NoError(t, ctrl.StartListening(ctx))
	rec.mu.Lock()
	events := rec.events
	rec.mu.Unlock()

	events <- Partial("search for")
	events <- Final("search for jazz")
	events <- Ended()

	require.Eventually(t, func() bool {
		return len(commit.all()) == 1 && ctrl.State() == fsm.StateIdle
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"search for jazz"}, commit.all())

	cancel()
	require.NoError(t, <-runDone)
}

func TestRunStopsActiveSessionOnShutdown(t *testing.T) {
	ctrl, rec, _, _ := newTestController(t)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run(ctx)
	}()

	require.NoError(t, ctrl.StartListening(context.Background()))
	cancel()
	require.NoError(t, <-runDone)
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(1), rec.stopCalls.Load())
}

func TestSessionLimitForcesStop(t *testing.T) {
	ctrl, rec, _, _ := newTestController(t)
	ctrl.SetSessionLimit(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	require.NoError(t, ctrl.StartListening(ctx))
	require.Eventually(t, func() bool {
		return ctrl.State() == fsm.StateIdle
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), rec.stopCalls.Load())
}

func TestStaleDeadlineDoesNotStopNewSession(t *testing.T) {
	ctrl, rec, _, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.StartListening(ctx))
	require.NoError(t, ctrl.StopListening(ctx))
	require.NoError(t, ctrl.StartListening(ctx))

	ctrl.HandleEvent(ctx, Event{Kind: eventDeadline, session: 1})
	require.Equal(t, fsm.StateListening, ctrl.State())
	require.Equal(t, int32(1), rec.stopCalls.Load())

	ctrl.HandleEvent(ctx, Event{Kind: eventDeadline, session: 2})
	require.Equal(t, fsm.StateIdle, ctrl.State())
}

func TestCommitFuncDelegates(t *testing.T) {
	called := false
	commit := CommitFunc(func(_ context.Context, transcript string) error {
		called = true
		require.Equal(t, "hello", transcript)
		return nil
	})

	require.NoError(t, commit.Commit(context.Background(), "hello"))
	require.True(t, called)
}
