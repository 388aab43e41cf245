// Package log provides structured logging for ReifyDB using zerolog.
//
// A single global Logger is initialized once via Init and shared by every
// package; callers that want request-scoped fields derive a child logger
// with WithTxnID, WithFlowID or WithOperatorID rather than passing a
// logger instance around.
package log
