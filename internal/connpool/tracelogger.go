package connpool

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// zerologAdapter bridges pgx's tracelog.Logger hook into a zerolog.Logger,
// the way jackc's own v4-era log/zerologadapter does for tracelog's v5
// successor: one small type implementing the single-method Logger
// interface, translating tracelog's level and data map into zerolog's
// structured-field API.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewTraceLogger returns a tracelog.Logger that writes through logger.
func NewTraceLogger(logger zerolog.Logger) tracelog.Logger {
	return &zerologAdapter{logger: logger}
}

func (a *zerologAdapter) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace:
		event = a.logger.Trace()
	case tracelog.LogLevelDebug:
		event = a.logger.Debug()
	case tracelog.LogLevelInfo:
		event = a.logger.Info()
	case tracelog.LogLevelWarn:
		event = a.logger.Warn()
	case tracelog.LogLevelError:
		event = a.logger.Error()
	default:
		event = a.logger.Info()
	}
	for k, v := range data {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
