// Package log provides the structured logging facade used across the audio
// pipeline.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records flow through a slog.Handler
// bridge into a Formatter (text or JSON) and one or more Outputs, so the
// slog ecosystem stays available while output stays consistent.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("ingest"), log.Str("stream", "audio_stream"))
//	l.Info("chunk appended", log.Str("id", "1700000000000-0"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: level, text or json
// format, console/file/null outputs, key redaction and per-message sampling.
//
// # Interop
//
// Libraries that write through the standard library logger (Pebble does)
// can be routed into a Logger with RedirectStdLog or ToStdLogger.
package log
