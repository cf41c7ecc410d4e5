// Package log provides streamsync's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by log/slog via
// a bridge handler that feeds the package's own formatter and outputs, so
// every component renders the same way regardless of how it logs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("streamsync"))
//	l.Info("stream registered", log.Str("stream", "NETCONF"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (text or JSON format,
// console/file/null outputs, optional sampling and key redaction).
//
// # Interop
//
// RedirectStdLog routes the standard library logger, which Pebble writes to,
// through a Logger. ToStdLogger adapts a Logger for APIs that want a
// *log.Logger, such as http.Server.ErrorLog.
package log
