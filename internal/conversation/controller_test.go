package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/duet/internal/errors"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/history"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/transcript"
)

const testEndpoint = "http://localhost:1234/v1/chat/completions"

// fakeCompleter answers with "<Name> reply <n>". When gate is set every
// call blocks until the test sends a token or the context ends.
type fakeCompleter struct {
	gate    chan struct{}
	entered chan persona.AgentID
	failOn  int

	mu       sync.Mutex
	calls    []persona.AgentID
	history  [][]history.Message
	inflight int
	maxInfl  int
}

func newFakeCompleter(gated bool) *fakeCompleter {
	f := &fakeCompleter{entered: make(chan persona.AgentID, 256)}
	if gated {
		f.gate = make(chan struct{})
	}
	return f
}

func (f *fakeCompleter) Endpoint() string { return testEndpoint }

func (f *fakeCompleter) Model(agent persona.AgentID) string { return "model-" + agent.Key() }

func (f *fakeCompleter) Complete(ctx context.Context, p persona.Persona, msgs []history.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p.ID)
	f.history = append(f.history, msgs)
	n := len(f.calls)
	f.inflight++
	if f.inflight > f.maxInfl {
		f.maxInfl = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	f.entered <- p.ID
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if n == f.failOn {
		return "", errors.NewRequestFailedError(testEndpoint, "API error: 500 Internal Server Error").WithStatusCode(500)
	}
	return fmt.Sprintf("%s reply %d", p.Name, n), nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCompleter) maxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInfl
}

func (f *fakeCompleter) historyFor(call int) []history.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[call]
}

// release lets one blocked call return.
func (f *fakeCompleter) release(t *testing.T) {
	t.Helper()
	select {
	case f.gate <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("no completion call was waiting")
	}
}

func (f *fakeCompleter) awaitCall(t *testing.T) persona.AgentID {
	t.Helper()
	select {
	case agent := <-f.entered:
		return agent
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not requested")
		return 0
	}
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (s *recordingSpeaker) Speak(_ context.Context, text string, agent persona.AgentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, agent.String()+":"+text)
}

func (s *recordingSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *recordingSpeaker) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...), s.stops
}

// blockingSpeaker holds every utterance until the test finishes it or
// playback is canceled.
type blockingSpeaker struct {
	started chan persona.AgentID
	done    chan struct{}
}

func newBlockingSpeaker() *blockingSpeaker {
	return &blockingSpeaker{
		started: make(chan persona.AgentID, 16),
		done:    make(chan struct{}),
	}
}

func (s *blockingSpeaker) Speak(ctx context.Context, _ string, agent persona.AgentID) {
	s.started <- agent
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *blockingSpeaker) Stop() {}

func (s *blockingSpeaker) awaitSpeak(t *testing.T) persona.AgentID {
	t.Helper()
	select {
	case agent := <-s.started:
		return agent
	case <-time.After(2 * time.Second):
		t.Fatal("reply was not spoken")
		return 0
	}
}

// finish ends the utterance in progress.
func (s *blockingSpeaker) finish(t *testing.T) {
	t.Helper()
	select {
	case s.done <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("nothing was being spoken")
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) record(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if s, ok := e.(event.StatusChangedEvent); ok {
			out = append(out, s.Status)
		}
	}
	return out
}

func (l *eventLog) ofType(eventType string) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event.Event
	for _, e := range l.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	ctrl    *Controller
	comp    *fakeCompleter
	speaker *recordingSpeaker
	events  *eventLog
}

func newHarness(t *testing.T, gated bool, delay time.Duration) *harness {
	t.Helper()
	h := &harness{
		comp:    newFakeCompleter(gated),
		speaker: &recordingSpeaker{},
		events:  &eventLog{},
	}
	bus := event.NewBus(nil)
	bus.SubscribeAll(h.events.record)
	h.ctrl = New(persona.DefaultRegistry(), h.comp, h.speaker, bus, nil, Options{TurnDelay: delay})
	t.Cleanup(h.ctrl.Close)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func entryCount(c *Controller) func() bool {
	return func() bool { return len(c.Snapshot().Entries) > 0 }
}

func TestStart_FirstTurn(t *testing.T) {
	h := newHarness(t, true, 0)

	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := h.comp.awaitCall(t); got != persona.AgentA {
		t.Fatalf("first request for agent %v, want A", got)
	}

	msgs := h.comp.historyFor(0)
	if len(msgs) != 1 || msgs[0].Role != history.RoleUser || !strings.Contains(msgs[0].Content, "Jordan") {
		t.Errorf("opening history = %+v, want single user opening prompt naming Jordan", msgs)
	}

	snap := h.ctrl.Snapshot()
	if snap.Status != StatusRunning || !snap.Pending || snap.Turn != persona.AgentA {
		t.Errorf("snapshot during request = %+v", snap)
	}
	if snap.StartedAt.IsZero() {
		t.Error("StartedAt should be set once running")
	}

	h.comp.release(t)
	if got := h.comp.awaitCall(t); got != persona.AgentB {
		t.Fatalf("second request for agent %v, want B", got)
	}

	snap = h.ctrl.Snapshot()
	if len(snap.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(snap.Entries))
	}
	e := snap.Entries[0]
	if e.Agent != persona.AgentA || e.Content != "Alex reply 1" || e.Kind != transcript.KindMessage {
		t.Errorf("entry = %+v", e)
	}
	if snap.Turn != persona.AgentB {
		t.Errorf("Turn = %v, want B", snap.Turn)
	}

	spoken, _ := h.speaker.snapshot()
	if len(spoken) != 1 || spoken[0] != "A:Alex reply 1" {
		t.Errorf("spoken = %v, want the first reply in A's voice", spoken)
	}

	started := h.events.ofType(event.TypeTurnStarted)
	if len(started) < 2 || started[0].(event.TurnStartedEvent).Model != "model-a" {
		t.Errorf("turn_started events = %+v", started)
	}
}

func TestErrorOnThirdTurn(t *testing.T) {
	h := newHarness(t, false, 0)
	h.comp.failOn = 3

	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "error to settle", func() bool {
		return len(h.events.statuses()) == 3
	})

	snap := h.ctrl.Snapshot()
	if len(snap.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 2 replies + marker", len(snap.Entries))
	}
	marker := snap.Entries[2]
	if marker.Kind != transcript.KindError || marker.Agent != persona.AgentA {
		t.Errorf("marker = %+v, want error entry for A", marker)
	}
	if !strings.Contains(marker.Content, testEndpoint) {
		t.Errorf("marker %q should name the endpoint", marker.Content)
	}
	if snap.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", snap.MessageCount)
	}
	if !errors.Is(snap.LastError, errors.ErrRequestFailed) {
		t.Errorf("LastError = %v, want ErrRequestFailed", snap.LastError)
	}
	if !snap.StartedAt.IsZero() {
		t.Error("timer should be cleared after an error")
	}
	if h.comp.callCount() != 3 {
		t.Errorf("calls = %d, want 3 (no retry)", h.comp.callCount())
	}

	want := []string{"running", "errored", "idle"}
	if got := h.events.statuses(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("status transitions = %v, want %v", got, want)
	}
	if n := len(h.events.ofType(event.TypeError)); n != 1 {
		t.Errorf("error events = %d, want 1", n)
	}
	if _, stops := h.speaker.snapshot(); stops == 0 {
		t.Error("speech should be stopped on error")
	}

	h.comp.gate = make(chan struct{})
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	resets := h.events.ofType(event.TypeReset)
	if len(resets) != 1 || resets[0].(event.ResetEvent).Cleared != 3 {
		t.Errorf("reset events = %+v, want one clearing 3 entries", resets)
	}
	if h.ctrl.LastError() != nil {
		t.Error("Start should clear LastError")
	}
}

func TestPauseDuringRequest(t *testing.T) {
	h := newHarness(t, true, 0)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)

	if err := h.ctrl.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	h.comp.release(t)

	waitFor(t, "in-flight reply to land", entryCount(h.ctrl))
	waitFor(t, "request to settle", func() bool { return !h.ctrl.Snapshot().Pending })

	snap := h.ctrl.Snapshot()
	if snap.Status != StatusPaused {
		t.Errorf("Status = %v, want paused", snap.Status)
	}
	if len(snap.Entries) != 1 || snap.Turn != persona.AgentB {
		t.Errorf("entries = %d turn = %v, want 1 entry and B's turn", len(snap.Entries), snap.Turn)
	}

	time.Sleep(20 * time.Millisecond)
	if n := h.comp.callCount(); n != 1 {
		t.Errorf("calls while paused = %d, want 1", n)
	}
	if spoken, _ := h.speaker.snapshot(); len(spoken) != 0 {
		t.Errorf("reply that landed after pause was spoken: %v", spoken)
	}

	if err := h.ctrl.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := h.comp.awaitCall(t); got != persona.AgentB {
		t.Errorf("after resume request for %v, want B", got)
	}
}

func TestStopDuringRequestDiscardsReply(t *testing.T) {
	h := newHarness(t, true, 0)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)

	h.ctrl.Stop()
	h.comp.release(t)
	h.ctrl.Close()

	snap := h.ctrl.Snapshot()
	if snap.Status != StatusIdle {
		t.Errorf("Status = %v, want idle", snap.Status)
	}
	if len(snap.Entries) != 0 {
		t.Errorf("Entries = %+v, want none", snap.Entries)
	}
	if !snap.StartedAt.IsZero() {
		t.Error("StartedAt should be cleared by Stop")
	}
	if len(h.events.ofType(event.TypeEntryAppended)) != 0 {
		t.Error("discarded reply must not be published")
	}
	if _, stops := h.speaker.snapshot(); stops == 0 {
		t.Error("Stop should stop speech")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, true, 0)

	h.ctrl.Stop()
	if len(h.events.statuses()) != 0 {
		t.Error("Stop while idle should publish nothing")
	}
	if _, stops := h.speaker.snapshot(); stops != 0 {
		t.Error("Stop while idle should not touch speech")
	}

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.ctrl.Stop()
	h.ctrl.Stop()

	want := []string{"running", "idle"}
	if got := h.events.statuses(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("status transitions = %v, want %v", got, want)
	}
}

func TestStopInterruptsDelay(t *testing.T) {
	h := newHarness(t, true, time.Hour)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.comp.release(t)
	waitFor(t, "first reply", entryCount(h.ctrl))

	done := make(chan struct{})
	go func() {
		h.ctrl.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() blocked on the inter-turn delay")
	}
}

func TestResumeDoesNotDuplicateLoop(t *testing.T) {
	h := newHarness(t, true, 0)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)

	for range 5 {
		if err := h.ctrl.Pause(); err != nil {
			t.Fatalf("Pause() error = %v", err)
		}
		if err := h.ctrl.Resume(); err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
	}

	h.comp.release(t)
	h.comp.awaitCall(t)
	time.Sleep(20 * time.Millisecond)

	if n := h.comp.callCount(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if m := h.comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}

	// Let the loop exit while paused, then resume into a fresh loop.
	_ = h.ctrl.Pause()
	h.comp.release(t)
	waitFor(t, "paused reply", func() bool { return len(h.ctrl.Snapshot().Entries) == 2 })
	waitFor(t, "request to settle", func() bool { return !h.ctrl.Snapshot().Pending })

	_ = h.ctrl.TogglePause()
	if got := h.comp.awaitCall(t); got != persona.AgentA {
		t.Errorf("third request for %v, want A", got)
	}
	if m := h.comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}
}

func newSpeechHarness(t *testing.T) (*Controller, *fakeCompleter, *blockingSpeaker) {
	t.Helper()
	comp := newFakeCompleter(true)
	spk := newBlockingSpeaker()
	ctrl := New(persona.DefaultRegistry(), comp, spk, nil, nil, Options{})
	t.Cleanup(ctrl.Close)
	return ctrl, comp, spk
}

func TestPauseDuringSpeech(t *testing.T) {
	ctrl, comp, spk := newSpeechHarness(t)

	_ = ctrl.Start()
	comp.awaitCall(t)
	comp.release(t)
	if got := spk.awaitSpeak(t); got != persona.AgentA {
		t.Fatalf("spoken by %v, want A", got)
	}

	if err := ctrl.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	spk.finish(t)

	time.Sleep(20 * time.Millisecond)
	if n := comp.callCount(); n != 1 {
		t.Errorf("calls while paused = %d, want 1", n)
	}
	snap := ctrl.Snapshot()
	if snap.Status != StatusPaused || len(snap.Entries) != 1 || snap.Turn != persona.AgentB {
		t.Errorf("status = %v entries = %d turn = %v, want paused, 1, B", snap.Status, len(snap.Entries), snap.Turn)
	}

	if err := ctrl.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := comp.awaitCall(t); got != persona.AgentB {
		t.Errorf("after resume request for %v, want B", got)
	}
	if m := comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}
}

func TestPauseResumeDuringSpeech(t *testing.T) {
	ctrl, comp, spk := newSpeechHarness(t)

	_ = ctrl.Start()
	comp.awaitCall(t)
	comp.release(t)
	spk.awaitSpeak(t)

	if err := ctrl.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := ctrl.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	spk.finish(t)

	if got := comp.awaitCall(t); got != persona.AgentB {
		t.Errorf("next request for %v, want B", got)
	}
	time.Sleep(20 * time.Millisecond)
	if n := comp.callCount(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if m := comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}
}

func TestPauseDuringDelay(t *testing.T) {
	h := newHarness(t, true, 300*time.Millisecond)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.comp.release(t)
	waitFor(t, "turn to complete", func() bool { return len(h.events.ofType(event.TypeTurnCompleted)) == 1 })

	if err := h.ctrl.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	if n := h.comp.callCount(); n != 1 {
		t.Errorf("calls while paused = %d, want 1", n)
	}

	if err := h.ctrl.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := h.comp.awaitCall(t); got != persona.AgentB {
		t.Errorf("after resume request for %v, want B", got)
	}
	if m := h.comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}
}

func TestPauseResumeDuringDelay(t *testing.T) {
	h := newHarness(t, true, 300*time.Millisecond)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.comp.release(t)
	waitFor(t, "turn to complete", func() bool { return len(h.events.ofType(event.TypeTurnCompleted)) == 1 })

	if err := h.ctrl.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := h.ctrl.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	if got := h.comp.awaitCall(t); got != persona.AgentB {
		t.Errorf("next request for %v, want B", got)
	}
	time.Sleep(20 * time.Millisecond)
	if n := h.comp.callCount(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if m := h.comp.maxInflight(); m != 1 {
		t.Errorf("max concurrent requests = %d, want 1", m)
	}
}

func TestTurnCompletedAfterSpeech(t *testing.T) {
	ctrl, comp, spk := newSpeechHarness(t)
	events := &eventLog{}
	ctrl.Bus().SubscribeAll(events.record)

	_ = ctrl.Start()
	comp.awaitCall(t)
	comp.release(t)
	spk.awaitSpeak(t)

	if n := len(events.ofType(event.TypeTurnCompleted)); n != 0 {
		t.Fatalf("turn completed %d times before speech finished", n)
	}
	spk.finish(t)
	comp.awaitCall(t)

	done := events.ofType(event.TypeTurnCompleted)
	if len(done) != 1 {
		t.Fatalf("turn completed events = %d, want 1", len(done))
	}
	if e := done[0].(event.TurnCompletedEvent); e.Agent != persona.AgentA || e.Seq != 1 {
		t.Errorf("turn completed = %+v, want A seq 1", e)
	}
}

func TestStopStartDuringDelay(t *testing.T) {
	h := newHarness(t, true, time.Hour)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.comp.release(t)
	waitFor(t, "turn to complete", func() bool { return len(h.events.ofType(event.TypeTurnCompleted)) == 1 })

	h.ctrl.Stop()
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := h.comp.awaitCall(t); got != persona.AgentA {
		t.Errorf("first request after restart for %v, want A", got)
	}

	// The loop woken from the canceled delay must not claim a turn.
	time.Sleep(20 * time.Millisecond)
	if n := h.comp.callCount(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if n := len(h.events.ofType(event.TypeTurnStarted)); n != 2 {
		t.Errorf("turn started events = %d, want 2", n)
	}
	snap := h.ctrl.Snapshot()
	if snap.Status != StatusRunning || !snap.Pending || snap.Turn != persona.AgentA || len(snap.Entries) != 0 {
		t.Errorf("snapshot after restart = %+v", snap)
	}
}

func TestStartWhilePausedRacesStop(t *testing.T) {
	h := newHarness(t, true, 0)

	for i := range 50 {
		if h.ctrl.Status() == StatusIdle {
			if err := h.ctrl.Start(); err != nil {
				t.Fatalf("iteration %d: Start() error = %v", i, err)
			}
		}
		if err := h.ctrl.Pause(); err != nil {
			t.Fatalf("iteration %d: Pause() error = %v", i, err)
		}

		stopped := make(chan struct{})
		go func() {
			h.ctrl.Stop()
			close(stopped)
		}()
		if err := h.ctrl.Start(); err != nil {
			t.Fatalf("iteration %d: Start() from paused error = %v", i, err)
		}
		<-stopped
	}
}

func TestTurnAlternationProperty(t *testing.T) {
	h := newHarness(t, true, 0)
	reg := h.ctrl.Registry()

	_ = h.ctrl.Start()
	for n := 1; n <= 6; n++ {
		h.comp.awaitCall(t)
		h.comp.release(t)
		waitFor(t, "entry", func() bool { return len(h.ctrl.Snapshot().Entries) == n })

		snap := h.ctrl.Snapshot()
		last := snap.Entries[n-1]
		if snap.Turn != reg.Next(last.Agent) {
			t.Errorf("after %d turns Turn = %v, want %v", n, snap.Turn, reg.Next(last.Agent))
		}
		if want := reg.At(n - 1); last.Agent != want {
			t.Errorf("entry %d by %v, want %v", n, last.Agent, want)
		}
		for i := 1; i < len(snap.Entries); i++ {
			if !snap.Entries[i].Timestamp.After(snap.Entries[i-1].Timestamp) {
				t.Errorf("entry %d timestamp not after entry %d", i, i-1)
			}
		}
	}
}

func TestHistoryGrowsWithTranscript(t *testing.T) {
	h := newHarness(t, true, 0)

	_ = h.ctrl.Start()
	for range 3 {
		h.comp.awaitCall(t)
		h.comp.release(t)
	}
	h.comp.awaitCall(t)

	// Fourth call is for B after A, B, A spoke: 3 entries + reply prompt.
	msgs := h.comp.historyFor(3)
	if len(msgs) != 4 {
		t.Fatalf("len(history) = %d, want 4", len(msgs))
	}
	if msgs[1].Role != history.RoleAssistant || msgs[1].Content != "Jordan reply 2" {
		t.Errorf("msgs[1] = %+v, want B's own reply as assistant", msgs[1])
	}
	if !strings.HasPrefix(msgs[3].Content, "Alex just said:") {
		t.Errorf("last message = %q, want reply prompt", msgs[3].Content)
	}
}

func TestStateErrors(t *testing.T) {
	h := newHarness(t, true, 0)

	if err := h.ctrl.Pause(); !errors.Is(err, errors.ErrNotRunning) {
		t.Errorf("Pause() while idle = %v, want ErrNotRunning", err)
	}
	if err := h.ctrl.Resume(); !errors.Is(err, errors.ErrNotPaused) {
		t.Errorf("Resume() while idle = %v, want ErrNotPaused", err)
	}
	if err := h.ctrl.TogglePause(); !errors.Is(err, errors.ErrNotRunning) {
		t.Errorf("TogglePause() while idle = %v, want ErrNotRunning", err)
	}

	_ = h.ctrl.Start()
	if err := h.ctrl.Start(); !errors.Is(err, errors.ErrAlreadyRunning) {
		t.Errorf("Start() while running = %v, want ErrAlreadyRunning", err)
	}

	_ = h.ctrl.Pause()
	if err := h.ctrl.Start(); err != nil {
		t.Errorf("Start() while paused = %v, want resume", err)
	}
	if h.ctrl.Status() != StatusRunning {
		t.Errorf("Status() = %v, want running", h.ctrl.Status())
	}

	h.ctrl.Close()
	if err := h.ctrl.Start(); !errors.Is(err, errors.ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t, true, 0)

	_ = h.ctrl.Start()
	h.comp.awaitCall(t)
	h.comp.release(t)
	waitFor(t, "entry", entryCount(h.ctrl))

	snap := h.ctrl.Snapshot()
	snap.Entries[0].Content = "tampered"

	if h.ctrl.Snapshot().Entries[0].Content == "tampered" {
		t.Error("Snapshot entries alias controller state")
	}
}

func TestSnapshotElapsed(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	comp := newFakeCompleter(true)
	ctrl := New(persona.DefaultRegistry(), comp, nil, nil, nil, Options{Now: clock})
	t.Cleanup(ctrl.Close)

	if ctrl.Snapshot().Elapsed != 0 {
		t.Error("Elapsed should be zero before start")
	}
	_ = ctrl.Start()

	mu.Lock()
	now = now.Add(95 * time.Second)
	mu.Unlock()

	if got := ctrl.Snapshot().Elapsed; got != 95*time.Second {
		t.Errorf("Elapsed = %v, want 1m35s", got)
	}
}

func TestStatusStrings(t *testing.T) {
	tests := []struct {
		s     Status
		str   string
		label string
	}{
		{StatusIdle, "idle", "Ready to Go"},
		{StatusRunning, "running", "Live"},
		{StatusPaused, "paused", "Paused"},
		{StatusErrored, "errored", "Connection Error"},
		{Status(42), "unknown", "Ready to Go"},
	}
	for _, tt := range tests {
		if tt.s.String() != tt.str || tt.s.Label() != tt.label {
			t.Errorf("Status(%d) = %q/%q, want %q/%q", tt.s, tt.s.String(), tt.s.Label(), tt.str, tt.label)
		}
	}
}
