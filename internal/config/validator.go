package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/duet/internal/speech"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "speech.rate")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Bounds for numeric settings
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinSpeechRate  = 0.1
	MaxSpeechRate  = 10.0
	MaxTurnDelayMs = 60_000
	maxLogSizeMB   = 1000
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidEngines returns the list of valid speech engines
func ValidEngines() []string {
	return []string{speech.EngineAuto, speech.EngineSay, speech.EngineEspeak, speech.EngineEspeakNG}
}

// ValidViews returns the list of valid TUI views
func ValidViews() []string {
	return []string{ViewSplit, ViewTimeline}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCompletion()...)
	errors = append(errors, c.validateConversation()...)
	errors = append(errors, c.validateSpeech()...)
	errors = append(errors, c.validatePersonas()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateCompletion() []ValidationError {
	var errors []ValidationError
	cc := c.Completion

	if u, err := url.Parse(cc.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "completion.endpoint",
			Value:   cc.Endpoint,
			Message: "must be an absolute http or https URL",
		})
	}

	models := []struct{ field, value string }{
		{"completion.models.a", cc.Models.A},
		{"completion.models.b", cc.Models.B},
	}
	for _, m := range models {
		if strings.TrimSpace(m.value) == "" {
			errors = append(errors, ValidationError{
				Field:   m.field,
				Value:   m.value,
				Message: "must not be empty",
			})
		}
	}

	if cc.Temperature < MinTemperature || cc.Temperature > MaxTemperature {
		errors = append(errors, ValidationError{
			Field:   "completion.temperature",
			Value:   cc.Temperature,
			Message: fmt.Sprintf("must be between %.1f and %.1f", MinTemperature, MaxTemperature),
		})
	}

	if cc.MaxTokens < -1 {
		errors = append(errors, ValidationError{
			Field:   "completion.max_tokens",
			Value:   cc.MaxTokens,
			Message: "must be -1 (unbounded), 0 (omit), or positive",
		})
	}

	if cc.RequestTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "completion.request_timeout",
			Value:   cc.RequestTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateConversation() []ValidationError {
	var errors []ValidationError

	if c.Conversation.TurnDelayMs < 0 || c.Conversation.TurnDelayMs > MaxTurnDelayMs {
		errors = append(errors, ValidationError{
			Field:   "conversation.turn_delay_ms",
			Value:   c.Conversation.TurnDelayMs,
			Message: fmt.Sprintf("must be between 0 and %d", MaxTurnDelayMs),
		})
	}

	if c.Conversation.MaxTurns < 0 {
		errors = append(errors, ValidationError{
			Field:   "conversation.max_turns",
			Value:   c.Conversation.MaxTurns,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	return errors
}

func (c *Config) validateSpeech() []ValidationError {
	var errors []ValidationError
	sc := c.Speech

	if sc.Rate < MinSpeechRate || sc.Rate > MaxSpeechRate {
		errors = append(errors, ValidationError{
			Field:   "speech.rate",
			Value:   sc.Rate,
			Message: fmt.Sprintf("must be between %.1f and %.1f", MinSpeechRate, MaxSpeechRate),
		})
	}

	if !slices.Contains(ValidEngines(), sc.Engine) {
		errors = append(errors, ValidationError{
			Field:   "speech.engine",
			Value:   sc.Engine,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidEngines(), ", ")),
		})
	}

	if sc.VoicePattern != "" {
		if _, err := glob.Compile(sc.VoicePattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "speech.voice_pattern",
				Value:   sc.VoicePattern,
				Message: fmt.Sprintf("invalid glob: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validatePersonas() []ValidationError {
	var errors []ValidationError

	if c.Personas.File == "" {
		return errors
	}

	info, err := os.Stat(ExpandHome(c.Personas.File))
	switch {
	case err != nil:
		errors = append(errors, ValidationError{
			Field:   "personas.file",
			Value:   c.Personas.File,
			Message: "file does not exist or is not readable",
		})
	case info.IsDir():
		errors = append(errors, ValidationError{
			Field:   "personas.file",
			Value:   c.Personas.File,
			Message: "must be a file, not a directory",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidViews(), c.TUI.DefaultView) {
		errors = append(errors, ValidationError{
			Field:   "tui.default_view",
			Value:   c.TUI.DefaultView,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidViews(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
