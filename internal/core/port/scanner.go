package port

import (
	"context"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
)

// EventScanner turns a block range into an ordered sequence of lock events.
// Implementations must return events sorted ascending by (block, log index)
// and treat an empty range as a no-op. Failures surface as a single
// transient error; retrying is the caller's responsibility.
type EventScanner interface {
	Scan(ctx context.Context, r entity.BlockRange) ([]entity.LockEvent, error)
}
