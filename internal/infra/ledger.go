package infra

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/ledger"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// InitSourceLedger dials the chain being watched for lock events. The
// bridge contract address is required here since the source ledger is the
// one the log filter runs against.
func InitSourceLedger(ctx context.Context, log applog.AppLogger, v *validator.Validate) (port.LedgerClient, error) {
	cfg := loadLedgerConfig("source")
	cfg.BridgeContract = viper.GetString("source.bridge_contract")
	if cfg.BridgeContract == "" {
		return nil, fmt.Errorf("infra: source.bridge_contract is required")
	}
	return initLedger(ctx, log, v, cfg)
}

// InitDestinationLedger dials the chain events are relayed to. It is only
// queried for its chain identity.
func InitDestinationLedger(ctx context.Context, log applog.AppLogger, v *validator.Validate) (port.LedgerClient, error) {
	cfg := loadLedgerConfig("destination")
	return initLedger(ctx, log, v, cfg)
}

func initLedger(ctx context.Context, log applog.AppLogger, v *validator.Validate, cfg ledger.Config) (port.LedgerClient, error) {
	if v == nil {
		v = validator.New()
	}
	l, err := ledger.NewEthereumLedger(log, cfg, v)
	if err != nil {
		return nil, fmt.Errorf("infra: failed to init %s ledger: %w", cfg.Name, err)
	}
	if err := l.Dial(ctx); err != nil {
		return nil, fmt.Errorf("infra: failed to dial %s ledger: %w", cfg.Name, err)
	}
	return l, nil
}

func loadLedgerConfig(name string) ledger.Config {
	return ledger.Config{
		Name:                      name,
		RPCURL:                    viper.GetString(name + ".rpc_url"),
		DialMaxRetryAttempts:      viper.GetInt(name + ".dial_max_retry_attempts"),
		DialRetryInitialBackoffMS: viper.GetInt(name + ".dial_retry_initial_backoff_ms"),
		DialRetryMaxBackoffMS:     viper.GetInt(name + ".dial_retry_max_backoff_ms"),
		DialRetryJitter:           viper.GetFloat64(name + ".dial_retry_jitter"),
		RequestTimeoutSeconds:     viper.GetInt(name + ".request_timeout_seconds"),
	}
}
