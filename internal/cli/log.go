package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes short-timestamped lines ("14:32:01.45") to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// timed starts a clock for one store or render call. The returned func logs
// what as a debug line on success, or as a warning carrying err, and adds
// the elapsed time either way:
//
//	finish := timed(c.Logger, "load graph")
//	g, err := loader.Graph(ctx, rid, false)
//	finish(err, "restaurant", rid)
func timed(l *log.Logger, what string) func(err error, keyvals ...any) {
	start := time.Now()
	return func(err error, keyvals ...any) {
		keyvals = append(keyvals, "elapsed", time.Since(start).Round(time.Millisecond))
		if err != nil {
			l.Warn(what+" failed", append(keyvals, "err", err)...)
			return
		}
		l.Debug(what, keyvals...)
	}
}
