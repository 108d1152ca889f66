package speech

import (
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/duet/internal/errors"
	"github.com/Iron-Ham/duet/internal/logging"
	"github.com/Iron-Ham/duet/internal/persona"
)

// Engine names accepted by Options.Engine.
const (
	EngineAuto     = "auto"
	EngineSay      = "say"
	EngineEspeak   = "espeak"
	EngineEspeakNG = "espeak-ng"
)

const (
	// baseWPM is the speaking rate at Options.Rate 1.0.
	baseWPM = 175
	// secondVoiceFactor speeds up every agent after the first.
	secondVoiceFactor = 1.05
	espeakPitch       = 45
	listTimeout       = 5 * time.Second
)

// autoOrder is the probe order for EngineAuto.
var autoOrder = []string{EngineSay, EngineEspeakNG, EngineEspeak}

// Options configures a CommandSpeaker.
type Options struct {
	Engine       string
	Rate         float64
	VoicePattern string
	Voices       map[persona.AgentID]string
	Enabled      bool
	// Order lists agents by voice slot; the first gets the base rate.
	Order []persona.AgentID
}

// RunFunc runs name with args, feeding stdin, until it exits or ctx ends.
type RunFunc func(ctx context.Context, stdin, name string, args ...string) error

// OutputFunc runs name with args and returns its stdout.
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandOption configures a CommandSpeaker.
type CommandOption func(*CommandSpeaker)

// WithRunner replaces process execution for utterances.
func WithRunner(run RunFunc) CommandOption {
	return func(s *CommandSpeaker) { s.run = run }
}

// WithOutput replaces process execution for voice listing.
func WithOutput(output OutputFunc) CommandOption {
	return func(s *CommandSpeaker) { s.output = output }
}

// WithLookPath replaces executable lookup.
func WithLookPath(lookPath func(string) (string, error)) CommandOption {
	return func(s *CommandSpeaker) { s.lookPath = lookPath }
}

// CommandSpeaker speaks through a text-to-speech command line tool.
// It is safe for concurrent use; a new Speak interrupts the previous one.
type CommandSpeaker struct {
	opts   Options
	logger *logging.Logger

	run      RunFunc
	output   OutputFunc
	lookPath func(string) (string, error)

	enabled atomic.Bool

	resolveOnce sync.Once
	engine      string
	voices      map[persona.AgentID]string
	resolveErr  error

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewCommandSpeaker creates a speaker. The engine and voices are resolved
// lazily on the first utterance.
func NewCommandSpeaker(opts Options, logger *logging.Logger, options ...CommandOption) *CommandSpeaker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.Engine == "" {
		opts.Engine = EngineAuto
	}
	if opts.Rate <= 0 {
		opts.Rate = 1.0
	}
	if len(opts.Order) == 0 {
		opts.Order = []persona.AgentID{persona.AgentA, persona.AgentB}
	}

	s := &CommandSpeaker{
		opts:     opts,
		logger:   logger.WithComponent("speech"),
		run:      runCommand,
		output:   commandOutput,
		lookPath: exec.LookPath,
	}
	for _, o := range options {
		o(s)
	}
	s.enabled.Store(opts.Enabled)
	return s
}

// Enabled reports whether Speak produces audio.
func (s *CommandSpeaker) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled turns speech on or off. Disabling cuts off current playback.
func (s *CommandSpeaker) SetEnabled(enabled bool) {
	if s.enabled.Swap(enabled) && !enabled {
		s.Stop()
	}
}

// Engine returns the resolved engine name, or "" if none is available.
func (s *CommandSpeaker) Engine() string {
	s.resolve()
	return s.engine
}

// Voice returns the voice assigned to agent, or "" for the engine default.
func (s *CommandSpeaker) Voice(agent persona.AgentID) string {
	s.resolve()
	return s.voices[agent]
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(ctx context.Context, text string, agent persona.AgentID) {
	text = strings.TrimSpace(text)
	if !s.Enabled() || text == "" {
		return
	}
	if err := s.resolve(); err != nil {
		return
	}

	uctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	id := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.seq == id {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	args := s.args(agent)
	if err := s.run(uctx, text, s.engine, args...); err != nil && uctx.Err() == nil {
		s.logger.Warn("speech failed",
			"agent", agent.String(),
			"error", errors.NewSpeechError("utterance failed", err).WithEngine(s.engine).Error(),
		)
	}
}

// Stop implements Speaker.
func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// WPM returns the speaking rate for agent in words per minute.
func (s *CommandSpeaker) WPM(agent persona.AgentID) int {
	rate := float64(baseWPM) * s.opts.Rate
	if len(s.opts.Order) > 0 && agent != s.opts.Order[0] {
		rate *= secondVoiceFactor
	}
	return int(math.Round(rate))
}

func (s *CommandSpeaker) args(agent persona.AgentID) []string {
	wpm := strconv.Itoa(s.WPM(agent))
	voice := s.voices[agent]

	var args []string
	switch s.engine {
	case EngineSay:
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args, "-r", wpm)
	default:
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args, "-s", wpm, "-p", strconv.Itoa(espeakPitch), "--stdin")
	}
	return args
}

func (s *CommandSpeaker) resolve() error {
	s.resolveOnce.Do(func() {
		s.engine, s.resolveErr = s.findEngine()
		if s.resolveErr != nil {
			s.logger.Warn("speech disabled", "error", s.resolveErr.Error())
			return
		}

		voices := s.listVoices()
		assigned, err := AssignVoices(voices, s.opts.VoicePattern, s.opts.Order, s.opts.Voices)
		if err != nil {
			s.logger.Warn("invalid voice pattern, using engine default voices",
				"pattern", s.opts.VoicePattern, "error", err.Error())
			assigned, _ = AssignVoices(nil, "", s.opts.Order, s.opts.Voices)
		}
		s.voices = assigned

		attrs := []any{"engine", s.engine, "available_voices", len(voices)}
		for _, agent := range s.opts.Order {
			attrs = append(attrs, "voice_"+agent.Key(), assigned[agent])
		}
		s.logger.Info("speech engine ready", attrs...)
	})
	return s.resolveErr
}

func (s *CommandSpeaker) findEngine() (string, error) {
	candidates := []string{s.opts.Engine}
	if s.opts.Engine == EngineAuto {
		candidates = autoOrder
	}
	for _, name := range candidates {
		if _, err := s.lookPath(name); err == nil {
			return name, nil
		}
	}
	return "", errors.NewSpeechError("no speech engine found on PATH", errors.ErrSpeechUnavailable).
		WithEngine(s.opts.Engine)
}

func (s *CommandSpeaker) listVoices() []Voice {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	if s.engine == EngineSay {
		out, err := s.output(ctx, s.engine, "-v", "?")
		if err != nil {
			s.logger.Debug("could not list voices", "engine", s.engine, "error", err.Error())
			return nil
		}
		return parseSayVoices(out)
	}

	out, err := s.output(ctx, s.engine, "--voices")
	if err != nil {
		s.logger.Debug("could not list voices", "engine", s.engine, "error", err.Error())
		return nil
	}
	return parseEspeakVoices(out)
}

func runCommand(ctx context.Context, stdin, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Run()
}

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
