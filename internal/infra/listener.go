package infra

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/scan"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/usecase"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// InitListener wires the relay control loop over the already constructed
// ledgers, store, and dispatcher.
func InitListener(
	log applog.AppLogger,
	wg *sync.WaitGroup,
	v *validator.Validate,
	source port.LedgerClient,
	dest port.LedgerClient,
	store port.DedupStore,
	dispatcher port.ActionDispatcher,
) (*usecase.ListenerService, error) {
	if wg == nil {
		wg = &sync.WaitGroup{}
	}
	if v == nil {
		v = validator.New()
	}

	cfg := usecase.Config{
		PollIntervalSeconds: uint32(viper.GetInt("listener.poll_interval_seconds")),
		StartBlock:          viper.GetString("listener.start_block"),
	}
	scanner := scan.NewRangeScanner(log, source)

	l, err := usecase.NewListenerService(log, wg, cfg, source, dest, scanner, store, dispatcher, v)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to init listener: %w", err)
	}
	return l, nil
}
