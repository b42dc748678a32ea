package usecase

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
)

type stubLogger struct{}

func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}

type heightResp struct {
	h   uint64
	err error
}

type fakeLedger struct {
	heights  []heightResp
	chainID  uint64
	chainErr error
}

func (f *fakeLedger) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if len(f.heights) == 0 {
		return 0, errors.New("height script exhausted")
	}
	r := f.heights[0]
	f.heights = f.heights[1:]
	return r.h, r.err
}

func (f *fakeLedger) FilterLockEvents(ctx context.Context, from, to uint64) ([]entity.LockEvent, error) {
	return nil, nil
}

func (f *fakeLedger) ChainID(ctx context.Context) (uint64, error) { return f.chainID, f.chainErr }
func (f *fakeLedger) Close()                                      {}

type scanResp struct {
	events []entity.LockEvent
	err    error
}

type fakeScanner struct {
	script []scanResp
	ranges []entity.BlockRange
}

func (f *fakeScanner) Scan(ctx context.Context, r entity.BlockRange) ([]entity.LockEvent, error) {
	f.ranges = append(f.ranges, r)
	if len(f.script) == 0 {
		return nil, nil
	}
	resp := f.script[0]
	f.script = f.script[1:]
	return resp.events, resp.err
}

type memStore struct {
	processed map[string]struct{}
	markErr   error
}

func newMemStore() *memStore { return &memStore{processed: make(map[string]struct{})} }

func (m *memStore) IsProcessed(id string) bool {
	_, ok := m.processed[id]
	return ok
}

func (m *memStore) MarkProcessed(id string) error {
	m.processed[id] = struct{}{}
	return m.markErr
}

type fakeDispatcher struct {
	errs  []error
	calls []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, ev entity.LockEvent) error {
	f.calls = append(f.calls, ev.TxID)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func acceptedEvent(tx string, block uint64, logIndex uint32) entity.LockEvent {
	return entity.LockEvent{
		TxID:          tx,
		BlockNumber:   block,
		LogIndex:      logIndex,
		Sender:        common.HexToAddress("0xaa"),
		Amount:        big.NewInt(100),
		TargetChainID: destChainID,
		Token:         common.HexToAddress("0xbb"),
	}
}

// newTestListener wires a listener whose sleeps are recorded and whose loop
// stops after maxSleeps wakeups.
func newTestListener(t *testing.T, scanner *fakeScanner, store *memStore, disp *fakeDispatcher, source *fakeLedger, maxSleeps int) (*ListenerService, *[]time.Duration) {
	t.Helper()
	s, err := NewListenerService(
		stubLogger{},
		&sync.WaitGroup{},
		Config{PollIntervalSeconds: 1, StartBlock: "5"},
		source,
		&fakeLedger{chainID: destChainID},
		scanner,
		store,
		disp,
		validator.New(),
	)
	require.NoError(t, err)
	s.destChainID = destChainID
	s.lastProcessed = 5

	sleeps := &[]time.Duration{}
	s.sleep = func(ctx context.Context, d time.Duration) bool {
		*sleeps = append(*sleeps, d)
		return len(*sleeps) <= maxSleeps
	}
	return s, sleeps
}

func TestNewListenerService_ConfigValidation(t *testing.T) {
	var ia *apperr.InvalidArgErr

	_, err := NewListenerService(stubLogger{}, &sync.WaitGroup{}, Config{}, &fakeLedger{}, &fakeLedger{}, &fakeScanner{}, newMemStore(), &fakeDispatcher{}, validator.New())
	require.ErrorAs(t, err, &ia)

	_, err = NewListenerService(stubLogger{}, &sync.WaitGroup{}, Config{PollIntervalSeconds: 1, StartBlock: "soon"}, &fakeLedger{}, &fakeLedger{}, &fakeScanner{}, newMemStore(), &fakeDispatcher{}, validator.New())
	require.ErrorAs(t, err, &ia)
}

func TestStart_ResolvesLatestStartBlockAndChainID(t *testing.T) {
	wg := &sync.WaitGroup{}
	source := &fakeLedger{heights: []heightResp{{h: 42}}}
	s, err := NewListenerService(
		stubLogger{},
		wg,
		Config{PollIntervalSeconds: 1, StartBlock: StartBlockLatest},
		source,
		&fakeLedger{chainID: destChainID},
		&fakeScanner{},
		newMemStore(),
		&fakeDispatcher{},
		validator.New(),
	)
	require.NoError(t, err)
	s.sleep = func(ctx context.Context, d time.Duration) bool { return false }

	require.NoError(t, s.Start())
	wg.Wait()

	require.Equal(t, uint64(42), s.LastProcessedBlock())
	require.Equal(t, destChainID, s.destChainID)
}

func TestStart_FatalWhenChainIDUnresolvable(t *testing.T) {
	s, err := NewListenerService(
		stubLogger{},
		&sync.WaitGroup{},
		Config{PollIntervalSeconds: 1, StartBlock: StartBlockLatest},
		&fakeLedger{},
		&fakeLedger{chainErr: errors.New("node down")},
		&fakeScanner{},
		newMemStore(),
		&fakeDispatcher{},
		validator.New(),
	)
	require.NoError(t, err)
	require.Error(t, s.Start())
}

func TestRun_DispatchesOnceAndDedupsRedelivery(t *testing.T) {
	ev := acceptedEvent("0xa", 7, 0)
	scanner := &fakeScanner{script: []scanResp{
		{events: []entity.LockEvent{ev}},
		{events: []entity.LockEvent{ev}}, // same event re-delivered in a later range
	}}
	store := newMemStore()
	disp := &fakeDispatcher{}
	source := &fakeLedger{heights: []heightResp{{h: 10}, {h: 12}}}

	s, _ := newTestListener(t, scanner, store, disp, source, 2)
	s.run(context.Background())

	require.Equal(t, []string{"0xa"}, disp.calls, "dispatch must run exactly once")
	require.True(t, store.IsProcessed("0xa"))
	require.Equal(t, uint64(12), s.LastProcessedBlock())
	require.Equal(t, []entity.BlockRange{{From: 6, To: 10}, {From: 11, To: 12}}, scanner.ranges)
}

func TestRun_WrongChainNeverDispatchedNorMarked(t *testing.T) {
	ev := acceptedEvent("0xa", 7, 0)
	ev.TargetChainID = 1
	scanner := &fakeScanner{script: []scanResp{{events: []entity.LockEvent{ev}}}}
	store := newMemStore()
	disp := &fakeDispatcher{}
	source := &fakeLedger{heights: []heightResp{{h: 10}}}

	s, _ := newTestListener(t, scanner, store, disp, source, 1)
	s.run(context.Background())

	require.Empty(t, disp.calls)
	require.False(t, store.IsProcessed("0xa"))
	// The range still advances; the event is skipped, not retried.
	require.Equal(t, uint64(10), s.LastProcessedBlock())
}

func TestRun_MalformedSkippedAndCycleContinues(t *testing.T) {
	bad := acceptedEvent("0xbad", 7, 0)
	bad.Amount = nil
	good := acceptedEvent("0xgood", 7, 1)
	scanner := &fakeScanner{script: []scanResp{{events: []entity.LockEvent{bad, good}}}}
	store := newMemStore()
	disp := &fakeDispatcher{}
	source := &fakeLedger{heights: []heightResp{{h: 10}}}

	s, _ := newTestListener(t, scanner, store, disp, source, 1)
	s.run(context.Background())

	require.Equal(t, []string{"0xgood"}, disp.calls)
	require.False(t, store.IsProcessed("0xbad"))
	require.True(t, store.IsProcessed("0xgood"))
}

func TestRun_BackoffThenRecovery(t *testing.T) {
	source := &fakeLedger{heights: []heightResp{
		{err: errors.New("rpc timeout")},
		{h: 10},
	}}
	scanner := &fakeScanner{script: []scanResp{{}}}
	s, sleeps := newTestListener(t, scanner, newMemStore(), &fakeDispatcher{}, source, 2)
	s.run(context.Background())

	interval := time.Duration(s.cfg.PollIntervalSeconds) * time.Second
	// Initial poll sleep, then the doubled backoff sleep, then back to normal.
	require.Equal(t, []time.Duration{interval, backoffMultiplier * interval, interval}, *sleeps)
	require.Equal(t, uint64(10), s.LastProcessedBlock())
}

func TestRun_ScanFailureRetriesWholeRange(t *testing.T) {
	ev := acceptedEvent("0xa", 8, 0)
	scanner := &fakeScanner{script: []scanResp{
		{err: apperr.NewTransientErr("log fetch failed", nil)},
		{events: []entity.LockEvent{ev}},
	}}
	store := newMemStore()
	disp := &fakeDispatcher{}
	source := &fakeLedger{heights: []heightResp{{h: 10}, {h: 10}}}

	s, sleeps := newTestListener(t, scanner, store, disp, source, 2)
	s.run(context.Background())

	require.Equal(t, []entity.BlockRange{{From: 6, To: 10}, {From: 6, To: 10}}, scanner.ranges)
	require.Equal(t, []string{"0xa"}, disp.calls)
	require.Equal(t, uint64(10), s.LastProcessedBlock())
	require.Equal(t, backoffMultiplier*time.Second, (*sleeps)[1])
}

func TestRun_DispatchFailureAbortsCycleWithoutAdvancing(t *testing.T) {
	ev1 := acceptedEvent("0xa", 7, 0)
	ev2 := acceptedEvent("0xb", 7, 1)
	scanner := &fakeScanner{script: []scanResp{
		{events: []entity.LockEvent{ev1, ev2}},
		{events: []entity.LockEvent{ev1, ev2}},
	}}
	store := newMemStore()
	disp := &fakeDispatcher{errs: []error{apperr.NewDispatchErr("broker down", nil)}}
	source := &fakeLedger{heights: []heightResp{{h: 10}, {h: 10}}}

	s, _ := newTestListener(t, scanner, store, disp, source, 2)
	s.run(context.Background())

	// First cycle aborts on ev1; second cycle retries both in order.
	require.Equal(t, []string{"0xa", "0xa", "0xb"}, disp.calls)
	require.True(t, store.IsProcessed("0xa"))
	require.True(t, store.IsProcessed("0xb"))
	require.Equal(t, uint64(10), s.LastProcessedBlock())
}

func TestRun_PersistenceFailureTolerated(t *testing.T) {
	ev := acceptedEvent("0xa", 7, 0)
	scanner := &fakeScanner{script: []scanResp{{events: []entity.LockEvent{ev}}}}
	store := newMemStore()
	store.markErr = apperr.NewPersistenceErr("disk full", nil)
	disp := &fakeDispatcher{}
	source := &fakeLedger{heights: []heightResp{{h: 10}}}

	s, _ := newTestListener(t, scanner, store, disp, source, 1)
	s.run(context.Background())

	// The flush failed but the cycle completed and the watermark advanced.
	require.Equal(t, []string{"0xa"}, disp.calls)
	require.Equal(t, uint64(10), s.LastProcessedBlock())
}

func TestRun_NoNewBlocksStaysIdle(t *testing.T) {
	scanner := &fakeScanner{}
	source := &fakeLedger{heights: []heightResp{{h: 5}, {h: 4}}}
	s, _ := newTestListener(t, scanner, newMemStore(), &fakeDispatcher{}, source, 2)
	s.run(context.Background())

	require.Empty(t, scanner.ranges)
	require.Equal(t, uint64(5), s.LastProcessedBlock())
}

func TestStopIsIdempotent(t *testing.T) {
	s, _ := newTestListener(t, &fakeScanner{}, newMemStore(), &fakeDispatcher{}, &fakeLedger{}, 0)
	s.Stop()
	s.Stop()
}
