// Package nop provides the silent logger used when no logger is configured.
package nop

import (
	"context"
	"log/slog"
)

// Handler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type Handler struct{}

func (Handler) Enabled(context.Context, slog.Level) bool  { return false }
func (Handler) Handle(context.Context, slog.Record) error { return nil }
func (Handler) WithAttrs([]slog.Attr) slog.Handler        { return Handler{} }
func (Handler) WithGroup(string) slog.Handler             { return Handler{} }

// Logger returns a logger backed by Handler.
func Logger() *slog.Logger { return slog.New(Handler{}) }
