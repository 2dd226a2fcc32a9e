// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (DebugKV, InfoKV, WarnKV).
//
// The packaging pipeline passes a context through every stage and extracts the
// logger from it, so run and package identifiers travel with each message.
package logger
