// Package logging provides structured JSON logging for duet.
//
// It wraps log/slog and writes one JSON object per line to debug.log inside
// the configured log directory, rotating the file by size. The same file can
// be read back with [AggregateLogs], narrowed with [FilterLogs], and written
// out as JSON, text, or CSV.
//
// # Context
//
// Child loggers carry persistent attributes:
//
//	logger := logger.WithSession(sessionID).WithAgent("A")
//	logger.Info("turn complete", "chars", 212)
//
// produces
//
//	{"time":"...","level":"INFO","msg":"turn complete","session_id":"...","agent":"A","chars":212}
//
// The fields session_id, agent, and component are lifted into [LogEntry]
// when logs are aggregated; everything else lands in LogEntry.Attrs.
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// share the parent's writer, and closing any of them closes it once.
//
// A [NopLogger] discards everything and is what components fall back to
// when handed a nil logger.
package logging
