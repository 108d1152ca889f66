package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/duet/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify duet configuration",
	Long: `View or modify duet configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  duet config set completion.models.a llama-3.2-3b-instruct
  duet config set conversation.turn_delay_ms 1500
  duet config set speech.enabled false

Valid keys:
` + configKeyHelp(),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/duet/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKey describes a key accepted by config set.
type configKey struct {
	name string
	kind string // "string", "bool", "int", "float", or "duration"
	help string
}

var configKeys = []configKey{
	{"completion.endpoint", "string", "Chat completions URL"},
	{"completion.api_key", "string", "Bearer token sent with each request"},
	{"completion.models.a", "string", "Model for agent A"},
	{"completion.models.b", "string", "Model for agent B"},
	{"completion.temperature", "float", "Sampling temperature (0-2)"},
	{"completion.max_tokens", "int", "Reply length cap (-1 no limit, 0 omit)"},
	{"completion.request_timeout", "duration", "Per-request timeout (e.g. 2m)"},
	{"conversation.turn_delay_ms", "int", "Pause between turns in milliseconds"},
	{"conversation.max_turns", "int", "Replies before 'duet watch' stops (0 = unlimited)"},
	{"speech.enabled", "bool", "Read replies aloud (true/false)"},
	{"speech.rate", "float", "Speaking rate multiplier (0.1-10)"},
	{"speech.engine", "string", "auto, say, espeak, or espeak-ng"},
	{"speech.voice_pattern", "string", "Glob matched against voice languages"},
	{"speech.voices.a", "string", "Voice for agent A"},
	{"speech.voices.b", "string", "Voice for agent B"},
	{"personas.file", "string", "Persona override file"},
	{"tui.default_view", "string", "split or timeline"},
	{"logging.enabled", "bool", "Write debug.log (true/false)"},
	{"logging.level", "string", "debug, info, warn, or error"},
	{"logging.max_size_mb", "int", "Size at which debug.log rotates"},
	{"logging.max_backups", "int", "Rotated files kept"},
	{"logging.compress", "bool", "Gzip rotated files (true/false)"},
	{"logging.dir", "string", "Log directory"},
}

func configKeyHelp() string {
	var sb strings.Builder
	for _, k := range configKeys {
		fmt.Fprintf(&sb, "  %-28s - %s\n", k.name, k.help)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lookupConfigKey(name string) (configKey, bool) {
	i := slices.IndexFunc(configKeys, func(k configKey) bool { return k.name == name })
	if i < 0 {
		return configKey{}, false
	}
	return configKeys[i], true
}

// parseConfigValue converts value to the type of key.
func parseConfigValue(key configKey, value string) (any, error) {
	switch key.kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key.name)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key.name)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key.name)
		}
		return f, nil
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected duration like 30s or 2m", key.name)
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	settings := viper.AllSettings()
	if completion, ok := settings["completion"].(map[string]any); ok {
		if key, _ := completion["api_key"].(string); key != "" {
			completion["api_key"] = "********"
		}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	key, ok := lookupConfigKey(name)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'duet config set --help' to see valid keys", name)
	}

	typedValue, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}

	previous := viper.Get(name)
	viper.Set(name, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(name, previous)
		return err
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", name, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigFile = `# duet configuration

# OpenAI-compatible chat completions endpoint (LM Studio, Ollama, llama.cpp, vLLM, ...)
completion:
  endpoint: http://localhost:1234/v1/chat/completions
  # Sent as "Authorization: Bearer <key>" when set
  api_key: ""
  # Model served for each agent
  models:
    a: liquid/lfm2.5-1.2b
    b: dolphin3.0-llama3.1-8b
  temperature: 0.7
  # -1 asks for no limit, 0 leaves the field out of the request
  max_tokens: -1
  request_timeout: 2m

conversation:
  # Pause after a reply is spoken before the next request
  turn_delay_ms: 500
  # Replies before 'duet watch' stops (0 = unlimited)
  max_turns: 0

speech:
  # Picked up while duet is running
  enabled: true
  rate: 1.0
  # auto, say, espeak, or espeak-ng
  engine: auto
  # Glob matched against voice languages when picking voices
  voice_pattern: "en*"
  # Pin a voice per agent
  voices:
    a: ""
    b: ""

personas:
  # YAML file overriding the built-in personas (see 'duet personas')
  file: ""

tui:
  # split or timeline
  default_view: split

logging:
  enabled: true
  # debug, info, warn, or error
  level: info
  max_size_mb: 10
  max_backups: 3
  compress: false
  # Defaults to <config dir>/logs
  dir: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'duet config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize duet's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintln(out, "  2. $HOME/.config/duet/config.yaml")
	fmt.Fprintln(out, "  3. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: DUET_* (e.g., DUET_COMPLETION_ENDPOINT)")
	return nil
}
