package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogQuery records a statement about to run. Debug level.
func (l *Logger) LogQuery(query string, params []any) {
	withParams(l.zlog.Debug().Str("query", query), params).Msg("query")
}

// LogQueryError records a statement that failed.
func (l *Logger) LogQueryError(err error, query string, params []any) {
	withParams(l.zlog.Error().Err(err).Str("query", query), params).Msg("query failed")
}

// LogQuerySlow records a statement that ran at or above the slow-query threshold.
func (l *Logger) LogQuerySlow(elapsed time.Duration, query string, params []any) {
	withParams(l.zlog.Warn().Dur("duration", elapsed).Str("query", query), params).Msg("query is slow")
}

// LogMigration records a migration step.
func (l *Logger) LogMigration(msg string) {
	l.zlog.Info().Str("component", "migration").Msg(msg)
}

// Log writes msg at a named level. Unknown levels, including the engine's
// verbose "log" level, are written at info.
func (l *Logger) Log(level, msg string) {
	var event *zerolog.Event
	switch level {
	case "query", "debug":
		event = l.zlog.Debug()
	case "warn":
		event = l.zlog.Warn()
	case "error":
		event = l.zlog.Error()
	default:
		event = l.zlog.Info()
	}
	event.Msg(msg)
}

func withParams(e *zerolog.Event, params []any) *zerolog.Event {
	if len(params) == 0 {
		return e
	}
	return e.Interface("parameters", params)
}
