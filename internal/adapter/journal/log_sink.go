package journal

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/port"
)

// LogSink writes every committed event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("journal")}
}

func (s *LogSink) Record(_ context.Context, entry port.Journal) error {
	for _, ev := range entry.Events {
		fields := make([]zap.Field, 0, len(ev.Attributes)+3)
		fields = append(fields,
			zap.String("command_id", entry.CommandID),
			zap.String("command", entry.Command),
			zap.String("caller", entry.Caller.String()),
		)
		for _, attr := range ev.Attributes {
			fields = append(fields, zap.String(attr.Key, attr.Value))
		}
		s.logger.Info(ev.Type, fields...)
	}
	return nil
}
