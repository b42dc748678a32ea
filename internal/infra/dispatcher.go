package infra

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/dispatch"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/adapter/oracle"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// InitDispatcher builds the downstream relay action selected by
// dispatch.mode: a Kafka mint-instruction publisher, or the simulated
// dispatcher that only logs what it would do.
func InitDispatcher(log applog.AppLogger, v *validator.Validate) (port.ActionDispatcher, error) {
	if v == nil {
		v = validator.New()
	}

	switch mode := viper.GetString("dispatch.mode"); mode {
	case "kafka":
		cfg := dispatch.Config{
			Brokers:               viper.GetStringSlice("kafka.brokers"),
			Topic:                 viper.GetString("kafka.topic"),
			ClientID:              viper.GetString("kafka.client_id"),
			MaxRetryAttempts:      viper.GetInt("kafka.max_retry_attempts"),
			RetryInitialBackoffMS: viper.GetInt("kafka.retry_initial_backoff_ms"),
			RetryMaxBackoffMS:     viper.GetInt("kafka.retry_max_backoff_ms"),
			RetryJitter:           viper.GetFloat64("kafka.retry_jitter"),
			WriteTimeoutSeconds:   viper.GetInt("kafka.write_timeout_seconds"),
		}
		d, err := dispatch.NewKafkaDispatcher(log, cfg, v)
		if err != nil {
			return nil, fmt.Errorf("infra: failed to init kafka dispatcher: %w", err)
		}
		return d, nil
	case "", "simulate":
		var hinter dispatch.GasPriceHinter
		if url := viper.GetString("gas_oracle.url"); url != "" {
			hinter = oracle.NewGasOracle(log, url)
		}
		return dispatch.NewSimulatedDispatcher(log, hinter), nil
	default:
		return nil, fmt.Errorf("infra: unknown dispatch mode %q", mode)
	}
}
