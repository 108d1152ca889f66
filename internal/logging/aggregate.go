package logging

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of debug.log.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Component string         `json:"component,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects entries. Zero-valued fields do not filter, and all set
// fields must match.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level           string
	StartTime       time.Time
	EndTime         time.Time
	SessionID       string
	Agent           string
	Component       string
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var contextFields = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	"session_id": true,
	"agent":      true,
	"component":  true,
}

// AggregateLogs parses {dir}/debug.log and returns its entries sorted by
// timestamp. Lines that are not JSON are skipped.
func AggregateLogs(dir string) ([]LogEntry, error) {
	f, err := os.Open(filepath.Join(dir, LogFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadLogEntries(f)
}

// ReadLogEntries parses JSON log lines from r, sorted by timestamp.
func ReadLogEntries(r io.Reader) ([]LogEntry, error) {
	const maxLine = 1024 * 1024

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var entries []LogEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}

	entry := LogEntry{
		Level:     str("level"),
		Message:   str("msg"),
		SessionID: str("session_id"),
		Agent:     str("agent"),
		Component: str("component"),
		Attrs:     make(map[string]any),
	}
	if t, err := time.Parse(time.RFC3339Nano, str("time")); err == nil {
		entry.Timestamp = t
	}

	for k, v := range raw {
		if !contextFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every criterion of filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var out []LogEntry
	for _, e := range entries {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f LogFilter) matches(e LogEntry) bool {
	if f.Level != "" {
		want, ok1 := levelOrder[strings.ToUpper(f.Level)]
		got, ok2 := levelOrder[e.Level]
		if ok1 && ok2 && got < want {
			return false
		}
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Agent != "" && !strings.EqualFold(e.Agent, f.Agent) {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains) {
		return false
	}
	return true
}

// ExportLogEntries writes entries to outputPath as "json", "text", or "csv".
func ExportLogEntries(entries []LogEntry, outputPath, format string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return WriteLogEntries(f, entries, format)
}

// WriteLogEntries writes entries to w as "json", "text", or "csv".
func WriteLogEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "text":
		return writeText(w, entries)
	case "csv":
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, text, csv)", format)
	}
}

// FormatText renders one entry as
// "[TIMESTAMP] LEVEL - MESSAGE (context) {attrs}".
func FormatText(e LogEntry) string {
	parts := []string{
		"[" + e.Timestamp.Format("2006-01-02 15:04:05.000") + "]",
		e.Level,
		"-",
		e.Message,
	}

	var ctx []string
	if e.SessionID != "" {
		ctx = append(ctx, "session="+e.SessionID)
	}
	if e.Agent != "" {
		ctx = append(ctx, "agent="+e.Agent)
	}
	if e.Component != "" {
		ctx = append(ctx, "component="+e.Component)
	}
	if len(ctx) > 0 {
		parts = append(parts, "("+strings.Join(ctx, ", ")+")")
	}

	if len(e.Attrs) > 0 {
		b, _ := json.Marshal(e.Attrs)
		parts = append(parts, string(b))
	}
	return strings.Join(parts, " ")
}

func writeText(w io.Writer, entries []LogEntry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, FormatText(e)); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, entries []LogEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"timestamp", "level", "message", "session_id", "agent", "component", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(b)
			}
		}
		record := []string{
			e.Timestamp.Format(time.RFC3339Nano),
			e.Level,
			e.Message,
			e.SessionID,
			e.Agent,
			e.Component,
			attrs,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
