// Package extensions provides cross-cutting runtime extensions: structured
// revision logging and call-tree capture for debugging.
package extensions

import (
	"log/slog"
	"time"

	moxie "github.com/moxie-fn/moxie-go"
)

// LoggingExtension logs revision boundaries through slog.
//
// Usage:
//
//	handler := slog.NewTextHandler(os.Stderr, nil)
//	rt := moxie.NewRuntime(moxie.WithExtension(extensions.NewLoggingExtension(handler)))
type LoggingExtension struct {
	moxie.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension writing to handler.
func NewLoggingExtension(handler slog.Handler) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: moxie.NewBaseExtension("logging"),
		logger:        slog.New(handler),
	}
}

func (e *LoggingExtension) OnRevisionStart(rev moxie.Revision) {
	e.logger.Debug("revision starting", "revision", uint64(rev))
}

func (e *LoggingExtension) OnRevisionEnd(rev moxie.Revision, took time.Duration) {
	e.logger.Info("revision completed", "revision", uint64(rev), "took", took)
}
