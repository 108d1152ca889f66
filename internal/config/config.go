package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/duet/internal/logging"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/speech"
)

// Config represents the complete duet configuration
type Config struct {
	Completion   CompletionConfig   `mapstructure:"completion"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Speech       SpeechConfig       `mapstructure:"speech"`
	Personas     PersonasConfig     `mapstructure:"personas"`
	TUI          TUIConfig          `mapstructure:"tui"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// CompletionConfig controls how replies are requested
type CompletionConfig struct {
	// Endpoint is the OpenAI-compatible chat completions URL
	Endpoint string `mapstructure:"endpoint"`
	// APIKey is sent as a Bearer token when set
	APIKey string `mapstructure:"api_key"`
	// Models holds the model identifier for each agent
	Models AgentStrings `mapstructure:"models"`
	// Temperature is the sampling temperature (0-2)
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps reply length. -1 asks for no limit, 0 omits the field.
	MaxTokens int `mapstructure:"max_tokens"`
	// RequestTimeout bounds a single completion request
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AgentStrings holds one string per agent, keyed by the agent's lowercase id
type AgentStrings struct {
	A string `mapstructure:"a"`
	B string `mapstructure:"b"`
}

// Map returns the values keyed by agent. Empty values are included.
func (s AgentStrings) Map() map[persona.AgentID]string {
	return map[persona.AgentID]string{
		persona.AgentA: s.A,
		persona.AgentB: s.B,
	}
}

// ConversationConfig controls pacing
type ConversationConfig struct {
	// TurnDelayMs is the pause after a reply is spoken before the next request
	TurnDelayMs int `mapstructure:"turn_delay_ms"`
	// MaxTurns ends a headless session after this many replies (0 = unlimited)
	MaxTurns int `mapstructure:"max_turns"`
}

// TurnDelay returns the inter-turn delay as a time.Duration
func (c *ConversationConfig) TurnDelay() time.Duration {
	return time.Duration(c.TurnDelayMs) * time.Millisecond
}

// SpeechConfig controls text-to-speech output
type SpeechConfig struct {
	// Enabled turns speech on. Changes are picked up while running.
	Enabled bool `mapstructure:"enabled"`
	// Rate multiplies the base speaking rate (0.1-10)
	Rate float64 `mapstructure:"rate"`
	// Engine is "auto", "say", "espeak", or "espeak-ng"
	Engine string `mapstructure:"engine"`
	// VoicePattern is a glob matched against voice languages (e.g. "en*")
	VoicePattern string `mapstructure:"voice_pattern"`
	// Voices pins a specific voice per agent, overriding VoicePattern
	Voices AgentStrings `mapstructure:"voices"`
}

// PersonasConfig points at an optional persona definition file
type PersonasConfig struct {
	// File is a YAML file overriding the built-in personas ("" = built-ins)
	File string `mapstructure:"file"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// DefaultView is the view shown at launch: "split" or "timeline"
	DefaultView string `mapstructure:"default_view"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Enabled controls whether debug.log is written
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level logged: debug, info, warn, error
	Level string `mapstructure:"level"`
	// MaxSizeMB is the size at which debug.log rotates
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress"`
	// Dir is where debug.log lives ("" = <config dir>/logs)
	Dir string `mapstructure:"dir"`
}

// Rotation returns the rotation settings for the log writer
func (c *LoggingConfig) Rotation() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// ResolveDir returns the log directory with ~ expanded.
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return ExpandHome(c.Dir)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// View names accepted by tui.default_view
const (
	ViewSplit    = "split"
	ViewTimeline = "timeline"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			Endpoint: "http://localhost:1234/v1/chat/completions",
			Models: AgentStrings{
				A: "liquid/lfm2.5-1.2b",
				B: "dolphin3.0-llama3.1-8b",
			},
			Temperature:    0.7,
			MaxTokens:      -1,
			RequestTimeout: 2 * time.Minute,
		},
		Conversation: ConversationConfig{
			TurnDelayMs: 500,
			MaxTurns:    0,
		},
		Speech: SpeechConfig{
			Enabled:      true,
			Rate:         1.0,
			Engine:       speech.EngineAuto,
			VoicePattern: "en*",
		},
		TUI: TUIConfig{
			DefaultView: ViewSplit,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("completion.endpoint", defaults.Completion.Endpoint)
	v.SetDefault("completion.api_key", defaults.Completion.APIKey)
	v.SetDefault("completion.models.a", defaults.Completion.Models.A)
	v.SetDefault("completion.models.b", defaults.Completion.Models.B)
	v.SetDefault("completion.temperature", defaults.Completion.Temperature)
	v.SetDefault("completion.max_tokens", defaults.Completion.MaxTokens)
	v.SetDefault("completion.request_timeout", defaults.Completion.RequestTimeout)

	v.SetDefault("conversation.turn_delay_ms", defaults.Conversation.TurnDelayMs)
	v.SetDefault("conversation.max_turns", defaults.Conversation.MaxTurns)

	v.SetDefault("speech.enabled", defaults.Speech.Enabled)
	v.SetDefault("speech.rate", defaults.Speech.Rate)
	v.SetDefault("speech.engine", defaults.Speech.Engine)
	v.SetDefault("speech.voice_pattern", defaults.Speech.VoicePattern)
	v.SetDefault("speech.voices.a", defaults.Speech.Voices.A)
	v.SetDefault("speech.voices.b", defaults.Speech.Voices.B)

	v.SetDefault("personas.file", defaults.Personas.File)

	v.SetDefault("tui.default_view", defaults.TUI.DefaultView)

	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "duet")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".duet"
	}
	return filepath.Join(home, ".config", "duet")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
