package port

import (
	"context"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
)

// LedgerClient abstracts a single blockchain node connection. The source
// ledger uses the full surface; the destination ledger is only queried for
// its chain identity.
type LedgerClient interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLockEvents(ctx context.Context, from, to uint64) ([]entity.LockEvent, error)
	ChainID(ctx context.Context) (uint64, error)
	Close()
}
