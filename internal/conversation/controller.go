package conversation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/duet/internal/errors"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/history"
	"github.com/Iron-Ham/duet/internal/logging"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/speech"
	"github.com/Iron-Ham/duet/internal/transcript"
)

// DefaultTurnDelay is the pause between one reply finishing and the next
// request starting.
const DefaultTurnDelay = 500 * time.Millisecond

// Completer produces a persona's next reply from its prompt history.
type Completer interface {
	Complete(ctx context.Context, p persona.Persona, msgs []history.Message) (string, error)
	// Endpoint names where requests go, for error markers.
	Endpoint() string
}

// modelNamer is implemented by completers that can report the model used
// for an agent.
type modelNamer interface {
	Model(agent persona.AgentID) string
}

// Options configures a Controller.
type Options struct {
	TurnDelay time.Duration
	// Now is the clock for transcript timestamps and elapsed time.
	Now func() time.Time
}

// Controller owns the conversation state and runs the turn loop.
//
// All state lives behind mu. The loop goroutine releases mu across the
// three suspension points (completion, speech, delay) and re-checks its
// generation and status after each one. Stop bumps the generation, so a
// loop that wakes up from a stale generation exits without touching state.
// Events are published after mu is released.
type Controller struct {
	reg       *persona.Registry
	completer Completer
	speaker   speech.Speaker
	bus       *event.Bus
	logger    *logging.Logger
	delay     time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	status    Status
	turn      persona.AgentID
	pending   bool
	tr        *transcript.Transcript
	startedAt time.Time
	lastErr   error
	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
	looping   bool
	closed    bool
	sessionID string
}

// New creates an idle Controller. A nil speaker is silent, a nil bus drops
// events, and a nil logger discards output.
func New(reg *persona.Registry, completer Completer, speaker speech.Speaker, bus *event.Bus, logger *logging.Logger, opts Options) *Controller {
	if speaker == nil {
		speaker = speech.NewNop()
	}
	if bus == nil {
		bus = event.NewBus(logger)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TurnDelay < 0 {
		opts.TurnDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		reg:       reg,
		completer: completer,
		speaker:   speaker,
		bus:       bus,
		logger:    logger.WithComponent("conversation"),
		delay:     opts.TurnDelay,
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusIdle,
		turn:      reg.Opener(),
		tr:        transcript.New(opts.Now),
	}
}

// Registry returns the personas taking part.
func (c *Controller) Registry() *persona.Registry {
	return c.reg
}

// Bus returns the bus the controller publishes on.
func (c *Controller) Bus() *event.Bus {
	return c.bus
}

// Start begins a new conversation from Idle, clearing any previous
// transcript. From Paused it resumes. From Running it returns
// ErrAlreadyRunning.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.ErrClosed
	}
	switch c.status {
	case StatusRunning:
		c.mu.Unlock()
		return errors.ErrAlreadyRunning
	case StatusPaused:
		logger := c.resumeLocked()
		c.mu.Unlock()
		c.resumed(logger)
		return nil
	}

	prev := c.status
	cleared := c.tr.Len()
	c.tr.Reset()
	c.gen++
	c.status = StatusRunning
	c.turn = c.reg.Opener()
	c.pending = false
	c.startedAt = c.now()
	c.lastErr = nil
	if c.genCancel != nil {
		c.genCancel()
	}
	c.genCtx, c.genCancel = context.WithCancel(c.ctx)
	c.sessionID = newSessionID()
	c.spawnLocked()
	logger := c.sessionLogger()
	c.mu.Unlock()

	logger.Info("conversation started", "opener", c.reg.Name(c.reg.Opener()))
	if cleared > 0 {
		c.bus.Publish(event.NewResetEvent(cleared))
	}
	c.bus.Publish(event.NewStatusChangedEvent(prev.String(), StatusRunning.String()))
	return nil
}

// Pause stops new turns from starting. A request already in flight still
// completes and is recorded.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.status != StatusRunning {
		c.mu.Unlock()
		return errors.ErrNotRunning
	}
	c.status = StatusPaused
	logger := c.sessionLogger()
	c.mu.Unlock()

	logger.Info("conversation paused")
	c.bus.Publish(event.NewStatusChangedEvent(StatusRunning.String(), StatusPaused.String()))
	return nil
}

// Resume continues a paused conversation from the current turn. If the
// previous loop has not yet noticed the pause it simply carries on;
// otherwise a new loop is started.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.status != StatusPaused {
		c.mu.Unlock()
		return errors.ErrNotPaused
	}
	logger := c.resumeLocked()
	c.mu.Unlock()

	c.resumed(logger)
	return nil
}

// resumeLocked moves a paused conversation back to running. Callers hold mu.
func (c *Controller) resumeLocked() *logging.Logger {
	c.status = StatusRunning
	if !c.looping {
		c.spawnLocked()
	}
	return c.sessionLogger()
}

func (c *Controller) resumed(logger *logging.Logger) {
	logger.Info("conversation resumed")
	c.bus.Publish(event.NewStatusChangedEvent(StatusPaused.String(), StatusRunning.String()))
}

// TogglePause pauses a running conversation or resumes a paused one.
func (c *Controller) TogglePause() error {
	switch c.Status() {
	case StatusRunning:
		return c.Pause()
	case StatusPaused:
		return c.Resume()
	default:
		return errors.ErrNotRunning
	}
}

// Stop ends the conversation: playback is cut off, the transcript and
// timer are cleared, and any reply still in flight is discarded when it
// arrives. Stop on an idle controller does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.status == StatusIdle {
		c.mu.Unlock()
		return
	}
	c.speaker.Stop()

	prev := c.status
	cleared := c.tr.Len()
	c.status = StatusIdle
	c.gen++
	c.looping = false
	c.pending = false
	c.tr.Reset()
	c.turn = c.reg.Opener()
	c.startedAt = time.Time{}
	c.lastErr = nil
	if c.genCancel != nil {
		c.genCancel()
		c.genCancel = nil
	}
	logger := c.sessionLogger()
	c.mu.Unlock()

	logger.Info("conversation stopped", "entries_cleared", cleared)
	c.bus.Publish(event.NewResetEvent(cleared))
	c.bus.Publish(event.NewStatusChangedEvent(prev.String(), StatusIdle.String()))
}

// Close stops the conversation, aborts any in-flight request, and waits
// for the loop to exit. The controller cannot be restarted afterwards.
func (c *Controller) Close() {
	c.Stop()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the error that ended the most recent session, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Status:       c.status,
		Turn:         c.turn,
		Pending:      c.pending,
		Entries:      c.tr.Entries(),
		MessageCount: c.tr.MessageCount(),
		StartedAt:    c.startedAt,
		LastError:    c.lastErr,
	}
	if !c.startedAt.IsZero() {
		s.Elapsed = c.now().Sub(c.startedAt)
	}
	return s
}

// spawnLocked starts a loop for the current generation. Callers hold mu.
func (c *Controller) spawnLocked() {
	c.looping = true
	c.wg.Add(1)
	go c.loop(c.gen, c.genCtx)
}

// sessionLogger must be called with mu held.
func (c *Controller) sessionLogger() *logging.Logger {
	if c.sessionID == "" {
		return c.logger
	}
	return c.logger.WithSession(c.sessionID)
}

// proceed reports whether the loop for gen should keep going. A loop that
// sees the conversation is no longer running clears looping so Resume
// knows to spawn a fresh one. Stale generations leave state untouched.
func (c *Controller) proceed(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proceedLocked(gen)
}

func (c *Controller) proceedLocked(gen uint64) bool {
	if c.gen != gen {
		return false
	}
	if c.status != StatusRunning {
		c.looping = false
		return false
	}
	return true
}

// loop runs turns for one generation. genCtx is canceled by Stop and cuts
// off playback and the inter-turn delay; the completion request itself
// runs on the root context and is only abandoned on Close.
func (c *Controller) loop(gen uint64, genCtx context.Context) {
	defer c.wg.Done()

	for c.turnOnce(gen, genCtx) {
	}
}

// turnOnce runs a single turn and reports whether the loop should
// continue to the next one. The generation and status are checked under
// the same lock that claims the turn.
func (c *Controller) turnOnce(gen uint64, genCtx context.Context) bool {
	c.mu.Lock()
	if !c.proceedLocked(gen) {
		c.mu.Unlock()
		return false
	}
	agent := c.turn
	entries := c.tr.Entries()
	c.pending = true
	logger := c.sessionLogger().WithAgent(agent.String())
	c.mu.Unlock()

	p, err := c.reg.Get(agent)
	if err != nil {
		c.fail(gen, agent, err, logger)
		return false
	}
	msgs, err := history.Build(entries, agent, c.reg)
	if err != nil {
		c.fail(gen, agent, err, logger)
		return false
	}

	model := ""
	if m, ok := c.completer.(modelNamer); ok {
		model = m.Model(agent)
	}
	c.bus.Publish(event.NewTurnStartedEvent(agent, model))
	logger.Debug("requesting completion", "model", model, "history", len(msgs))

	start := time.Now()
	reply, err := c.completer.Complete(c.ctx, p, msgs)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		logger.Debug("discarding reply from stopped session", "error", err != nil)
		return false
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(gen, agent, err, logger)
		return false
	}

	entry := c.tr.Append(agent, reply, transcript.KindMessage)
	c.turn = c.reg.Next(agent)
	c.pending = false
	next := c.turn
	running := c.status == StatusRunning
	if !running {
		c.looping = false
	}
	c.mu.Unlock()

	logger.Info("turn complete",
		"seq", entry.Seq,
		"chars", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.bus.Publish(event.NewEntryAppendedEvent(entry, next))

	if !running {
		return false
	}

	c.speaker.Speak(genCtx, reply, agent)
	if !c.proceed(gen) {
		return false
	}
	c.bus.Publish(event.NewTurnCompletedEvent(agent, entry.Seq))

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		select {
		case <-timer.C:
		case <-genCtx.Done():
			timer.Stop()
		}
	}
	return true
}

// fail records a turn error. The marker entry and Errored status are
// published, playback stops, and the controller settles to Idle with the
// transcript left in place for review.
func (c *Controller) fail(gen uint64, agent persona.AgentID, err error, logger *logging.Logger) {
	endpoint := c.completer.Endpoint()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	marker := c.tr.Append(agent, errorMarker(endpoint), transcript.KindError)
	prev := c.status
	c.status = StatusErrored
	c.lastErr = err
	c.looping = false
	c.pending = false
	turn := c.turn
	c.mu.Unlock()

	logger.Error("turn failed", "endpoint", endpoint, "error", err.Error())
	c.bus.Publish(event.NewEntryAppendedEvent(marker, turn))
	c.bus.Publish(event.NewStatusChangedEvent(prev.String(), StatusErrored.String()))
	c.bus.Publish(event.NewErrorEvent(agent, endpoint, err))

	c.speaker.Stop()

	c.mu.Lock()
	if c.gen != gen || c.status != StatusErrored {
		c.mu.Unlock()
		return
	}
	c.status = StatusIdle
	c.startedAt = time.Time{}
	c.mu.Unlock()

	c.bus.Publish(event.NewStatusChangedEvent(StatusErrored.String(), StatusIdle.String()))
}

func errorMarker(endpoint string) string {
	return fmt.Sprintf("[Error: Could not get a reply from the completion server. Make sure it's running on %s]", endpoint)
}

func newSessionID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return hex.EncodeToString(b)
}
