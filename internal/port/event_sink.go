package port

import (
	"context"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

// Journal is the set of events committed by one command.
type Journal struct {
	CommandID string
	Command   string
	Caller    domain.Principal
	Events    []domain.Event
}

type EventSink interface {
	// Record stores a committed journal entry
	Record(ctx context.Context, entry Journal) error
}
