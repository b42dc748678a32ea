package scan

import (
	"context"
	"sort"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// RangeScanner fetches lock events for a block range from the source ledger
// and guarantees (block, log index) ascending order. It never retries; a
// ledger failure bubbles up as the transient error the listener backs off on.
type RangeScanner struct {
	log    applog.AppLogger
	ledger port.LedgerClient
}

func NewRangeScanner(log applog.AppLogger, ledger port.LedgerClient) *RangeScanner {
	return &RangeScanner{log: log, ledger: ledger}
}

// Scan returns the ordered lock events in r. An empty range yields an empty
// sequence and no error.
func (s *RangeScanner) Scan(ctx context.Context, r entity.BlockRange) ([]entity.LockEvent, error) {
	if r.Empty() {
		return nil, nil
	}

	events, err := s.ledger.FilterLockEvents(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}

	// Processing order is load-bearing for the dedup gate downstream.
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	s.log.Trace("Scanned block range", "from", r.From, "to", r.To, "events", len(events))
	return events, nil
}
