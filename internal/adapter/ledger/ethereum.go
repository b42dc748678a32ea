package ledger

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-playground/validator/v10"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/pattern"
)

// bridgeEventABI describes the single event the listener watches. The full
// bridge contract carries more surface; only TokensLocked matters here.
const bridgeEventABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "toChainId", "type": "uint256"},
			{"indexed": false, "name": "amount", "type": "uint256"},
			{"indexed": false, "name": "token", "type": "address"}
		],
		"name": "TokensLocked",
		"type": "event"
	}
]`

const tokensLockedEvent = "TokensLocked"

const defaultRequestTimeout = 10 * time.Second

// EthereumLedger is a go-ethereum backed LedgerClient. It dials lazily with
// exponential backoff and surfaces every RPC failure as a TransientErr so
// the listener's backoff state machine owns the retry policy.
//
// Use NewEthereumLedger to construct an instance and Dial to establish the
// initial connection; a dial failure at startup is fatal to the process.
type EthereumLedger struct {
	log            applog.AppLogger
	cfg            Config
	client         ethereumClient
	bridgeABI      abi.ABI
	bridgeAddr     common.Address
	requestTimeout time.Duration

	newClient func(context.Context) (ethereumClient, error)
}

// NewEthereumLedger validates the configuration and prepares a ledger client
// for the node named in cfg. The connection is established by Dial.
func NewEthereumLedger(log applog.AppLogger, cfg Config, v *validator.Validate) (*EthereumLedger, error) {
	if err := v.Struct(cfg); err != nil {
		log.Error("invalid ledger config", "name", cfg.Name, "err", err)
		return nil, apperr.NewInvalidArgErr("invalid ledger config", err)
	}

	parsed, err := abi.JSON(strings.NewReader(bridgeEventABI))
	if err != nil {
		return nil, apperr.NewInternalErr("failed to parse bridge event ABI", err)
	}

	timeout := defaultRequestTimeout
	if cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	l := &EthereumLedger{
		log:            log,
		cfg:            cfg,
		bridgeABI:      parsed,
		requestTimeout: timeout,
	}
	if cfg.BridgeContract != "" {
		l.bridgeAddr = common.HexToAddress(cfg.BridgeContract)
	}
	l.newClient = func(ctx context.Context) (ethereumClient, error) {
		return ethclient.DialContext(ctx, cfg.RPCURL)
	}
	return l, nil
}

// Dial connects to the node, retrying with backoff and jitter until success,
// attempt exhaustion, or context cancellation.
func (l *EthereumLedger) Dial(ctx context.Context) error {
	opts := []pattern.RetryOption{
		pattern.WithInitialDelay(500 * time.Millisecond),
		pattern.WithMaxDelay(10 * time.Second),
		pattern.WithMultiplier(2.0),
		pattern.WithJitter(0.2),
	}
	if l.cfg.DialMaxRetryAttempts > 0 {
		opts = append(opts, pattern.WithMaxAttempts(l.cfg.DialMaxRetryAttempts))
	}
	if l.cfg.DialRetryInitialBackoffMS > 0 {
		opts = append(opts, pattern.WithInitialDelay(time.Duration(l.cfg.DialRetryInitialBackoffMS)*time.Millisecond))
	}
	if l.cfg.DialRetryMaxBackoffMS > 0 {
		opts = append(opts, pattern.WithMaxDelay(time.Duration(l.cfg.DialRetryMaxBackoffMS)*time.Millisecond))
	}
	if l.cfg.DialRetryJitter > 0 {
		opts = append(opts, pattern.WithJitter(l.cfg.DialRetryJitter))
	}

	err := pattern.Retry(ctx, func(attempt int) error {
		c, err := l.newClient(ctx)
		if err != nil {
			l.log.Warn("Ledger dial failed", "name", l.cfg.Name, "attempt", attempt, "err", err)
			return err
		}
		l.client = c
		return nil
	}, opts...)
	if err != nil {
		return apperr.NewTransientErr("failed to dial ledger node", err)
	}
	l.log.Info("Connected to ledger node", "name", l.cfg.Name, "url", l.cfg.RPCURL)
	return nil
}

// LatestBlockNumber returns the node's current chain head height.
func (l *EthereumLedger) LatestBlockNumber(ctx context.Context) (uint64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.requestTimeout)
	defer cancel()

	n, err := l.client.BlockNumber(reqCtx)
	if err != nil {
		return 0, apperr.NewTransientErr("failed to get latest block number", err)
	}
	return n, nil
}

// FilterLockEvents fetches TokensLocked logs emitted by the bridge contract
// in [from, to] and decodes them. Removed (reorged-out) and undecodable logs
// are skipped with a warning rather than failing the whole range.
func (l *EthereumLedger) FilterLockEvents(ctx context.Context, from, to uint64) ([]entity.LockEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{l.bridgeAddr},
		Topics:    [][]common.Hash{{l.bridgeABI.Events[tokensLockedEvent].ID}},
	}

	reqCtx, cancel := context.WithTimeout(ctx, l.requestTimeout)
	defer cancel()

	logs, err := l.client.FilterLogs(reqCtx, query)
	if err != nil {
		return nil, apperr.NewTransientErr("failed to filter lock event logs", err)
	}

	events := make([]entity.LockEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			l.log.Warn("Skipping removed log", "tx", lg.TxHash.Hex(), "block", lg.BlockNumber)
			continue
		}
		ev, err := l.decodeLockEvent(lg)
		if err != nil {
			l.log.Warn("Skipping undecodable lock event log", "tx", lg.TxHash.Hex(), "block", lg.BlockNumber, "err", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (l *EthereumLedger) decodeLockEvent(lg types.Log) (entity.LockEvent, error) {
	if len(lg.Topics) < 3 {
		return entity.LockEvent{}, apperr.NewInternalErr("lock event log missing indexed topics", nil)
	}

	vals, err := l.bridgeABI.Unpack(tokensLockedEvent, lg.Data)
	if err != nil {
		return entity.LockEvent{}, apperr.NewInternalErr("failed to unpack lock event data", err)
	}
	if len(vals) != 2 {
		return entity.LockEvent{}, apperr.NewInternalErr("unexpected lock event data arity", nil)
	}
	amount, ok := vals[0].(*big.Int)
	if !ok {
		return entity.LockEvent{}, apperr.NewInternalErr("unexpected amount type in lock event", nil)
	}
	token, ok := vals[1].(common.Address)
	if !ok {
		return entity.LockEvent{}, apperr.NewInternalErr("unexpected token type in lock event", nil)
	}

	return entity.LockEvent{
		TxID:          lg.TxHash.Hex(),
		BlockNumber:   lg.BlockNumber,
		LogIndex:      uint32(lg.Index),
		Sender:        common.BytesToAddress(lg.Topics[1].Bytes()),
		Amount:        amount,
		TargetChainID: new(big.Int).SetBytes(lg.Topics[2].Bytes()).Uint64(),
		Token:         token,
	}, nil
}

// ChainID queries the node's chain identity.
func (l *EthereumLedger) ChainID(ctx context.Context) (uint64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.requestTimeout)
	defer cancel()

	id, err := l.client.ChainID(reqCtx)
	if err != nil {
		return 0, apperr.NewTransientErr("failed to query chain id", err)
	}
	return id.Uint64(), nil
}

// Close releases the underlying RPC connection.
func (l *EthereumLedger) Close() {
	if l.client != nil {
		l.client.Close()
	}
}

type ethereumClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}
