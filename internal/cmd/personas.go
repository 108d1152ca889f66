package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/duet/internal/config"
	"github.com/Iron-Ham/duet/internal/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Show the active personas",
	Long: `Print the personas in the YAML format read by personas.file.

Use --init to write the built-in personas to a file you can edit, then
point personas.file at it:
  duet personas --init ~/.config/duet/personas.yaml
  duet config set personas.file ~/.config/duet/personas.yaml`,
	Args: cobra.NoArgs,
	RunE: runPersonas,
}

var personasInit string

func init() {
	rootCmd.AddCommand(personasCmd)

	personasCmd.Flags().StringVar(&personasInit, "init", "", "write the built-in personas to this file")
}

func runPersonas(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if personasInit != "" {
		path := config.ExpandHome(personasInit)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("persona file already exists at %s", path)
		}
		data, err := persona.DefaultRegistry().Marshal()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write persona file: %w", err)
		}
		fmt.Fprintf(out, "Created persona file at %s\n", path)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	reg, err := persona.Load(config.ExpandHome(cfg.Personas.File))
	if err != nil {
		return err
	}
	data, err := reg.Marshal()
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
