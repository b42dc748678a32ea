package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
)

type testLogger struct{}

func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
func (testLogger) Debug(string, ...any) {}
func (testLogger) Trace(string, ...any) {}
func (testLogger) Fatal(string, ...any) {}

type fakeLedger struct {
	events []entity.LockEvent
	err    error
	calls  int
}

func (f *fakeLedger) LatestBlockNumber(ctx context.Context) (uint64, error) { return 0, nil }

func (f *fakeLedger) FilterLockEvents(ctx context.Context, from, to uint64) ([]entity.LockEvent, error) {
	f.calls++
	return f.events, f.err
}

func (f *fakeLedger) ChainID(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeLedger) Close()                                      {}

func TestScan_EmptyRangeIsNoOp(t *testing.T) {
	fl := &fakeLedger{}
	s := NewRangeScanner(testLogger{}, fl)

	events, err := s.Scan(context.Background(), entity.BlockRange{From: 100, To: 50})
	require.NoError(t, err)
	require.Empty(t, events)
	require.Zero(t, fl.calls, "empty range must not hit the ledger")
}

func TestScan_OrdersByBlockThenLogIndex(t *testing.T) {
	fl := &fakeLedger{events: []entity.LockEvent{
		{TxID: "0xc", BlockNumber: 7, LogIndex: 0},
		{TxID: "0xb", BlockNumber: 5, LogIndex: 1},
		{TxID: "0xa", BlockNumber: 5, LogIndex: 0},
	}}
	s := NewRangeScanner(testLogger{}, fl)

	events, err := s.Scan(context.Background(), entity.BlockRange{From: 5, To: 7})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "0xa", events[0].TxID)
	require.Equal(t, "0xb", events[1].TxID)
	require.Equal(t, "0xc", events[2].TxID)
}

func TestScan_SurfacesTransientError(t *testing.T) {
	fl := &fakeLedger{err: apperr.NewTransientErr("rpc timeout", nil)}
	s := NewRangeScanner(testLogger{}, fl)

	_, err := s.Scan(context.Background(), entity.BlockRange{From: 1, To: 2})
	var te *apperr.TransientErr
	require.ErrorAs(t, err, &te)
}
