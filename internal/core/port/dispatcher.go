package port

import (
	"context"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
)

// ActionDispatcher performs the downstream relay effect for one validated
// event. The listener only marks an event processed after Dispatch returns
// nil, so implementations must tolerate re-delivery of the same TxID.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, ev entity.LockEvent) error
}
