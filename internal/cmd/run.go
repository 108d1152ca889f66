package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/duet/internal/config"
	"github.com/Iron-Ham/duet/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the terminal UI",
	Long: `Open the terminal UI. Press space to start the conversation, space again
to pause or resume, esc to stop, v to switch between the split and timeline
views, m to mute speech, and q to quit.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

var runView string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runView, "view", "", "initial view: split or timeline (default from config)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the terminal UI needs a terminal; use 'duet watch' for headless output")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.watchConfig()

	view := cfg.TUI.DefaultView
	if runView != "" {
		view = runView
	}

	opts := tui.Options{
		View:   view,
		Speech: a.speaker,
		Bus:    a.bus,
	}
	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		opts.Width, opts.Height = width, height
	}

	if err := tui.New(a.ctrl, opts).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
