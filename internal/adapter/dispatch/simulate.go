package dispatch

import (
	"context"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/metrics"
)

// GasPriceHinter supplies an informational gas price for dry-run logging.
// Failures are tolerated; the hint has no effect on correctness.
type GasPriceHinter interface {
	SuggestedGasPrice(ctx context.Context) (string, error)
}

// SimulatedDispatcher logs the mint that would be triggered on the
// destination ledger instead of performing it. Used for dry runs and local
// development.
type SimulatedDispatcher struct {
	log    applog.AppLogger
	hinter GasPriceHinter
}

// NewSimulatedDispatcher builds a dry-run dispatcher. hinter may be nil.
func NewSimulatedDispatcher(log applog.AppLogger, hinter GasPriceHinter) *SimulatedDispatcher {
	return &SimulatedDispatcher{log: log, hinter: hinter}
}

// Dispatch logs the mint intent and always succeeds.
func (sd *SimulatedDispatcher) Dispatch(ctx context.Context, ev entity.LockEvent) error {
	args := []any{
		"tx", ev.TxID,
		"recipient", ev.Sender.Hex(),
		"amount", ev.Amount.String(),
		"token", ev.Token.Hex(),
		"target_chain", ev.TargetChainID,
	}
	if sd.hinter != nil {
		if price, err := sd.hinter.SuggestedGasPrice(ctx); err != nil {
			sd.log.Warn("Could not fetch gas price hint", "err", err)
		} else {
			args = append(args, "gas_price_gwei", price)
		}
	}

	sd.log.Info("SIMULATION: would trigger mint on destination bridge", args...)
	imetrics.Dispatcher().DispatchedTotal.WithLabelValues("simulate").Inc()
	return nil
}
