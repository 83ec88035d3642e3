package typeset

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/typeset/internal/nop"
)

// nopHandler discards all log records. The font and raster packages use
// the same handler for their silent defaults.
type nopHandler = nop.Handler

func newNopLogger() *slog.Logger { return nop.Logger() }

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by engines created afterwards that
// were not given one through WithLogger. By default typeset produces no log
// output. Pass nil to restore the silent default.
//
// Log levels used by typeset:
//   - [slog.LevelDebug]: per-request diagnostics (fonts, family fallback,
//     pages, cache stats)
//   - [slog.LevelInfo]: font directory warm-up summary
//   - [slog.LevelWarn]: skipped font files, missing fallback families
//
// Example:
//
//	typeset.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
