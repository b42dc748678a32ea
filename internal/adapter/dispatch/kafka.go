package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/metrics"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/pattern"
)

const (
	defaultRetryAttempts       = 5
	defaultRetryInitialBackoff = 200 * time.Millisecond
	defaultRetryMaxBackoff     = 2 * time.Second
	defaultRetryJitter         = 0.2
	defaultWriteTimeout        = 10 * time.Second
)

// mintInstruction is the payload handed to the relay executor. The executor
// owns signing and broadcast on the destination ledger; this process only
// guarantees the instruction is produced at least once per lock event.
type mintInstruction struct {
	TxID          string `json:"tx_id"`
	Recipient     string `json:"recipient"`
	Amount        string `json:"amount"`
	Token         string `json:"token"`
	TargetChainID uint64 `json:"target_chain_id"`
}

// KafkaDispatcher publishes one mint instruction per accepted lock event,
// keyed by the source transaction id so the executor side can dedup
// re-deliveries.
type KafkaDispatcher struct {
	log          applog.AppLogger
	client       kgoClient
	cfg          Config
	writeTimeout time.Duration
	retryOpts    []pattern.RetryOption
}

// NewKafkaDispatcher builds a Kafka-backed dispatcher with validated
// configuration and retry settings.
func NewKafkaDispatcher(log applog.AppLogger, cfg Config, v *validator.Validate) (*KafkaDispatcher, error) {
	if err := v.Struct(cfg); err != nil {
		return nil, apperr.NewInvalidArgErr("invalid kafka dispatcher config", err)
	}

	maxAttempts := cfg.MaxRetryAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultRetryAttempts
	}
	initialBackoff := millisecondsOrDefault(cfg.RetryInitialBackoffMS, defaultRetryInitialBackoff)
	maxBackoff := millisecondsOrDefault(cfg.RetryMaxBackoffMS, defaultRetryMaxBackoff)
	if maxBackoff < initialBackoff {
		maxBackoff = initialBackoff
	}
	jitter := cfg.RetryJitter
	if jitter <= 0 {
		jitter = defaultRetryJitter
	}

	client, err := newKgoClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, apperr.NewInvalidArgErr("failed to init kafka client", err)
	}

	kd := &KafkaDispatcher{
		log:          log,
		client:       client,
		cfg:          cfg,
		writeTimeout: secondsOrDefault(cfg.WriteTimeoutSeconds, defaultWriteTimeout),
	}
	kd.retryOpts = []pattern.RetryOption{
		pattern.WithMaxAttempts(maxAttempts),
		pattern.WithInitialDelay(initialBackoff),
		pattern.WithMaxDelay(maxBackoff),
		pattern.WithJitter(jitter),
		pattern.WithShouldRetry(kd.shouldRetry),
	}
	return kd, nil
}

// Dispatch serializes the mint instruction for ev and produces it with
// retries. Any terminal failure surfaces as a DispatchErr; the caller must
// not mark the event processed in that case.
func (kd *KafkaDispatcher) Dispatch(ctx context.Context, ev entity.LockEvent) error {
	if ev.TxID == "" {
		return apperr.NewInvalidArgErr("lock event tx id is required", nil)
	}

	payload, err := json.Marshal(mintInstruction{
		TxID:          ev.TxID,
		Recipient:     ev.Sender.Hex(),
		Amount:        ev.Amount.String(),
		Token:         ev.Token.Hex(),
		TargetChainID: ev.TargetChainID,
	})
	if err != nil {
		return apperr.NewDispatchErr("failed to marshal mint instruction", err)
	}

	rec := kd.buildRecord(ev, payload)
	start := time.Now()
	if err := pattern.Retry(ctx, func(attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, kd.writeTimeout)
		defer cancel()

		res := kd.client.ProduceSync(attemptCtx, rec)
		writeErr := res.FirstErr()
		if writeErr != nil {
			if kd.shouldRetry(writeErr) {
				kd.log.Warn("Mint instruction publish attempt failed", "attempt", attempt, "tx", ev.TxID, "topic", kd.cfg.Topic, "err", writeErr)
			} else {
				kd.log.Error("Mint instruction publish failed (non-retriable)", "tx", ev.TxID, "topic", kd.cfg.Topic, "err", writeErr)
			}
		}
		return writeErr
	}, kd.retryOpts...); err != nil {
		imetrics.Dispatcher().PublishErrorsTotal.WithLabelValues("kafka", "produce").Inc()
		return apperr.NewDispatchErr("failed to publish mint instruction", err)
	}

	imetrics.Dispatcher().DispatchedTotal.WithLabelValues("kafka").Inc()
	imetrics.Dispatcher().PublishLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	kd.log.Trace("Published mint instruction", "topic", kd.cfg.Topic, "tx", ev.TxID, "target_chain", ev.TargetChainID)
	return nil
}

func (kd *KafkaDispatcher) buildRecord(ev entity.LockEvent, payload []byte) *kgo.Record {
	headers := []kgo.RecordHeader{
		{Key: "source-block", Value: []byte(strconv.FormatUint(ev.BlockNumber, 10))},
		{Key: "target-chain-id", Value: []byte(strconv.FormatUint(ev.TargetChainID, 10))},
	}
	return &kgo.Record{
		Topic:   kd.cfg.Topic,
		Key:     []byte(ev.TxID),
		Value:   payload,
		Headers: headers,
	}
}

func (kd *KafkaDispatcher) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}

	// Broker-marked retriable errors: leader changes, coordinator load,
	// not enough replicas, and the like.
	if kerr.IsRetriable(err) {
		return true
	}
	// The topic may be provisioned shortly after startup.
	if errors.Is(err, kerr.UnknownTopicOrPartition) {
		return true
	}
	return false
}

// Close flushes and releases the Kafka client.
func (kd *KafkaDispatcher) Close() {
	kd.client.Close()
}

func millisecondsOrDefault(ms int, def time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func secondsOrDefault(s int, def time.Duration) time.Duration {
	if s > 0 {
		return time.Duration(s) * time.Second
	}
	return def
}

type kgoClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

var newKgoClient = func(opts ...kgo.Opt) (kgoClient, error) {
	return kgo.NewClient(opts...)
}
