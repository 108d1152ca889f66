package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/duet/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "duet",
	Short: "Two language models, one conversation",
	Long: `Duet runs an unattended conversation between two language-model agents,
each with its own persona, through an OpenAI-compatible chat completions
endpoint. Replies can be read aloud with the system speech engine.

Run without a subcommand to open the terminal UI.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/duet/config.yaml)")
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/duet")
		viper.AddConfigPath(".")
	}

	// A .env file in the working directory may supply DUET_* variables.
	// Variables already set in the environment win.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUET")
	// Replace dots with underscores for nested keys in env vars
	// e.g., DUET_COMPLETION_ENDPOINT for completion.endpoint
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
