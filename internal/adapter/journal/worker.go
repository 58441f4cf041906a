package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/port"
)

const recordTimeout = 5 * time.Second

// Drain records queued entries until the queue is closed. A failed record is
// logged and dropped; the state change it describes is already committed.
func Drain(id int, queue <-chan port.Journal, sink port.EventSink, logger *zap.Logger) {
	for entry := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)

		if err := sink.Record(ctx, entry); err != nil {
			logger.Error("failed to record journal entry",
				zap.Int("worker", id),
				zap.String("command_id", entry.CommandID),
				zap.Error(err),
			)
		} else {
			logger.Debug("recorded journal entry",
				zap.Int("worker", id),
				zap.String("command_id", entry.CommandID),
			)
		}

		cancel()
	}
}
