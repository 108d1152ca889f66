package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/duet/internal/config"
	"github.com/Iron-Ham/duet/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View conversation logs",
	Long: `View and filter the duet debug log.

Examples:
  # Show the last 50 entries
  duet logs

  # Show everything from one conversation
  duet logs -s 3f2a9c1e -n 0

  # Only warnings and errors from the last hour
  duet logs --level warn --since 1h

  # Entries about agent A's completion requests
  duet logs --agent a --component completion

  # Follow the log as it grows
  duet logs -f

  # Export matching entries as CSV
  duet logs --grep "timeout|refused" --export errors.csv --format csv`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsSessionID string
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsAgent     string
	logsComponent string
	logsExport    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsSessionID, "session", "s", "", "Only entries from this conversation session")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsAgent, "agent", "", "Only entries about this agent (a or b)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from this component (e.g., completion, speech)")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write matching entries to this file instead of the terminal")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Export format: text, json, or csv")
}

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	logFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	logLevelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		logging.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
)

// logQuery is the parsed form of the logs flags.
type logQuery struct {
	filter logging.LogFilter
	grep   *regexp.Regexp
	tail   int
}

func parseLogQuery(now time.Time) (logQuery, error) {
	q := logQuery{
		filter: logging.LogFilter{
			SessionID: logsSessionID,
			Agent:     logsAgent,
			Component: logsComponent,
		},
		tail: logsTail,
	}

	if logsLevel != "" {
		q.filter.Level = logging.ParseLevel(logsLevel)
	}

	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return q, fmt.Errorf("invalid duration format: %w", err)
		}
		q.filter.StartTime = now.Add(-d)
	}

	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return q, fmt.Errorf("invalid grep pattern: %w", err)
		}
		q.grep = re
	}

	return q, nil
}

// apply filters entries and keeps the last tail of them.
func (q logQuery) apply(entries []logging.LogEntry) []logging.LogEntry {
	entries = logging.FilterLogs(entries, q.filter)
	if q.grep != nil {
		var kept []logging.LogEntry
		for _, e := range entries {
			if q.matchesGrep(e) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if q.tail > 0 && len(entries) > q.tail {
		entries = entries[len(entries)-q.tail:]
	}
	return entries
}

func (q logQuery) matchesGrep(e logging.LogEntry) bool {
	if q.grep == nil {
		return true
	}
	text := e.Message
	for _, v := range e.Attrs {
		text += " " + fmt.Sprintf("%v", v)
	}
	return q.grep.MatchString(text)
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir := config.Get().Logging.ResolveDir()
	out := cmd.OutOrStdout()

	q, err := parseLogQuery(time.Now())
	if err != nil {
		return err
	}

	if logsFollow {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return followLogs(ctx, filepath.Join(dir, logging.LogFileName), q, out)
	}

	entries, err := logging.AggregateLogs(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(out, "No logs found.")
			fmt.Fprintln(out, "Logs are stored at:", filepath.Join(dir, logging.LogFileName))
			return nil
		}
		return err
	}

	entries = q.apply(entries)

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
		return nil
	}

	if logsFormat != "text" {
		return logging.WriteLogEntries(out, entries, logsFormat)
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatLogEntry(e))
	}
	return nil
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(e logging.LogEntry) string {
	var sb strings.Builder

	sb.WriteString(logTimeStyle.Render("[" + e.Timestamp.Local().Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	level := strings.ToUpper(e.Level)
	if style, ok := logLevelStyle[level]; ok {
		sb.WriteString(style.Render("[" + level + "]"))
	} else {
		sb.WriteString("[" + level + "]")
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	field := func(key, value string) {
		sb.WriteString(" ")
		sb.WriteString(logFieldStyle.Render(key + "="))
		sb.WriteString(value)
	}
	if e.Agent != "" {
		field("agent", e.Agent)
	}
	if e.Component != "" {
		field("component", e.Component)
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field(k, fmt.Sprintf("%v", e.Attrs[k]))
	}

	return sb.String()
}

// followLogs prints entries appended to path until ctx is done. The file
// is watched with fsnotify. Rotation is detected when the file shrinks.
func followLogs(ctx context.Context, path string, q logQuery, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so rotation and late creation are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch log directory: %w", err)
	}

	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	fmt.Fprintf(out, "Following %s... (Ctrl+C to stop)\n\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			offset, err = printNewEntries(path, offset, q, out)
			if err != nil {
				return err
			}
		}
	}
}

// printNewEntries prints complete lines after offset and returns the new
// offset. A file smaller than offset was rotated and is read from the start.
func printNewEntries(path string, offset int64, q logQuery, out io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return offset, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return offset, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("failed to seek log file: %w", err)
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A partial line is picked up on the next write.
			return offset, nil
		}
		offset += int64(len(line))

		entries, perr := logging.ReadLogEntries(strings.NewReader(line))
		if perr != nil || len(entries) == 0 {
			continue
		}
		tailless := q
		tailless.tail = 0
		for _, e := range tailless.apply(entries) {
			fmt.Fprintln(out, formatLogEntry(e))
		}
	}
}
