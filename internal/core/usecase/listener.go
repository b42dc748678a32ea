package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/entity"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/core/port"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
	imetrics "github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/metrics"
)

// StartBlockLatest is the start-block sentinel meaning "the source chain's
// current head at startup".
const StartBlockLatest = "latest"

const (
	// backoffMultiplier extends exactly one sleep after a transient
	// failure; it does not compound across repeated failures.
	backoffMultiplier = 2

	initTimeout     = 30 * time.Second
	dispatchTimeout = 30 * time.Second
)

// Config holds the listener cadence and starting position.
type Config struct {
	PollIntervalSeconds uint32 `validate:"required,gte=1"`
	// StartBlock is either StartBlockLatest or a decimal block height.
	StartBlock string `validate:"required"`
}

// ListenerService drives the relay control loop: poll the source ledger for
// new heights, scan the unseen range for lock events, validate each event
// against the destination chain identity, dispatch the downstream action,
// and record it in the dedup store — in strict (block, log index) order.
//
// The loop never terminates on its own. Transient failures extend the next
// sleep to backoffMultiplier times the poll interval for one cycle; the
// following cycle runs at the normal cadence again. The block watermark only
// advances after a range has been fully processed, so an aborted cycle
// re-scans the whole range (already processed events are absorbed by the
// dedup gate).
type ListenerService struct {
	log        applog.AppLogger
	wg         *sync.WaitGroup
	cfg        Config
	source     port.LedgerClient
	dest       port.LedgerClient
	scanner    port.EventScanner
	store      port.DedupStore
	dispatcher port.ActionDispatcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	lastProcessed uint64
	destChainID   uint64

	// sleep is swapped out by tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewListenerService validates cfg and wires the listener's collaborators.
// The starting block and destination chain id are resolved by Start.
func NewListenerService(
	log applog.AppLogger,
	wg *sync.WaitGroup,
	cfg Config,
	source port.LedgerClient,
	dest port.LedgerClient,
	scanner port.EventScanner,
	store port.DedupStore,
	dispatcher port.ActionDispatcher,
	v *validator.Validate,
) (*ListenerService, error) {
	if err := v.Struct(cfg); err != nil {
		log.Error("invalid listener config", "err", err)
		return nil, apperr.NewInvalidArgErr("invalid listener config", err)
	}
	if _, err := resolveStartBlockConfig(cfg.StartBlock); err != nil {
		return nil, err
	}

	s := &ListenerService{
		log:        log,
		wg:         wg,
		cfg:        cfg,
		source:     source,
		dest:       dest,
		scanner:    scanner,
		store:      store,
		dispatcher: dispatcher,
	}
	s.sleep = s.sleepFor
	return s, nil
}

// resolveStartBlockConfig parses the configured start block. A nil result
// with nil error means the latest-height sentinel.
func resolveStartBlockConfig(v string) (*uint64, error) {
	if v == StartBlockLatest {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, apperr.NewInvalidArgErr("start block must be \"latest\" or a decimal height", err)
	}
	return &n, nil
}

// Start resolves the starting block and the destination chain identity,
// then launches the listening goroutine. Resolution failures are returned
// to the caller and are fatal to the process.
func (s *ListenerService) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return apperr.NewInternalErr("listener already running", nil)
	}
	s.mu.Unlock()

	initCtx, cancelInit := context.WithTimeout(context.Background(), initTimeout)
	defer cancelInit()

	destID, err := s.dest.ChainID(initCtx)
	if err != nil {
		return apperr.NewTransientErr("failed to resolve destination chain id", err)
	}
	s.destChainID = destID

	fixed, err := resolveStartBlockConfig(s.cfg.StartBlock)
	if err != nil {
		return err
	}
	if fixed != nil {
		s.lastProcessed = *fixed
		s.log.Info("Starting from configured block", "block", *fixed)
	} else {
		latest, err := s.source.LatestBlockNumber(initCtx)
		if err != nil {
			return apperr.NewTransientErr("failed to resolve latest block at startup", err)
		}
		s.lastProcessed = latest
		s.log.Info("Starting from the latest block", "block", latest)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.log.Info("Starting relay listener", "destination_chain", s.destChainID, "poll_interval_s", s.cfg.PollIntervalSeconds)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.cancel = nil
			s.mu.Unlock()
		}()
		s.run(ctx)
	}()
	return nil
}

// run is the POLL_WAIT / SCAN / PROCESS / BACKOFF loop. Cancellation is
// honored between steps only; a PROCESS step in flight drains first.
func (s *ListenerService) run(ctx context.Context) {
	interval := time.Duration(s.cfg.PollIntervalSeconds) * time.Second
	sleep := interval

	for {
		if !s.sleep(ctx, sleep) {
			s.log.Info("Stopping relay listener...")
			return
		}
		// A backoff extends exactly one sleep; restore the cadence.
		sleep = interval

		latest, err := s.source.LatestBlockNumber(ctx)
		if err != nil {
			s.log.Warn("Failed to get latest block; backing off", "err", err)
			imetrics.Listener().BackoffsTotal.WithLabelValues("height_query").Inc()
			imetrics.App().WarningsTotal.WithLabelValues(imetrics.ComponentListener, "height_query").Inc()
			sleep = backoffMultiplier * interval
			continue
		}

		last := s.LastProcessedBlock()
		if latest <= last {
			s.log.Debug("No new blocks to process", "latest", latest)
			continue
		}

		r := entity.BlockRange{From: last + 1, To: latest}
		s.log.Info("Scanning blocks", "from", r.From, "to", r.To)

		scanStart := time.Now()
		events, err := s.scanner.Scan(ctx, r)
		if err != nil {
			s.log.Warn("Scan failed; range will be retried", "from", r.From, "to", r.To, "err", err)
			imetrics.Listener().BackoffsTotal.WithLabelValues("scan").Inc()
			imetrics.App().WarningsTotal.WithLabelValues(imetrics.ComponentListener, "scan").Inc()
			sleep = backoffMultiplier * interval
			continue
		}
		imetrics.Listener().ScanLatencyMS.Observe(float64(time.Since(scanStart).Milliseconds()))
		imetrics.Listener().RangesScannedTotal.Inc()

		if err := s.processEvents(ctx, events); err != nil {
			if ctx.Err() != nil {
				s.log.Info("Stopping relay listener...")
				return
			}
			s.log.Error("Cycle aborted; range will be re-scanned", "from", r.From, "to", r.To, "err", err)
			imetrics.Listener().BackoffsTotal.WithLabelValues("process").Inc()
			imetrics.App().ErrorsTotal.WithLabelValues(imetrics.ComponentListener, "process").Inc()
			sleep = backoffMultiplier * interval
			continue
		}

		s.setLastProcessed(r.To)
		imetrics.Listener().LastProcessedBlock.Set(float64(r.To))
	}
}

// processEvents walks the ordered sequence: dedup gate, verdict, dispatch,
// mark-processed. A dispatch failure aborts the remaining events so the
// caller can back off without advancing the watermark. Mark-processed
// failures are logged and tolerated; the in-memory dedup set stays correct
// for this process run.
func (s *ListenerService) processEvents(ctx context.Context, events []entity.LockEvent) error {
	for _, ev := range events {
		if s.store.IsProcessed(ev.TxID) {
			s.log.Debug("Skipping already processed transaction", "tx", ev.TxID)
			imetrics.Listener().EventsTotal.WithLabelValues(imetrics.OutcomeDedup).Inc()
			continue
		}

		res := ValidateEvent(ev, s.destChainID)
		switch res.Verdict {
		case VerdictMalformed:
			s.log.Error("Malformed lock event; skipping", "tx", ev.TxID, "reason", res.Reason)
			imetrics.Listener().EventsTotal.WithLabelValues(imetrics.OutcomeMalformed).Inc()
			continue
		case VerdictWrongChain:
			s.log.Warn("Lock event targets a different chain; skipping", "tx", ev.TxID, "target_chain", ev.TargetChainID)
			imetrics.Listener().EventsTotal.WithLabelValues(imetrics.OutcomeWrongChain).Inc()
			continue
		}

		// Cancellation must not cut an in-flight PROCESS step short, so
		// dispatch runs on a detached context with its own deadline.
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		err := s.dispatcher.Dispatch(dispatchCtx, ev)
		cancel()
		if err != nil {
			return apperr.NewDispatchErr("failed to dispatch lock event", err)
		}
		imetrics.Listener().EventsTotal.WithLabelValues(imetrics.OutcomeDispatched).Inc()

		if err := s.store.MarkProcessed(ev.TxID); err != nil {
			// Durable state may lag until the next successful flush; the
			// in-memory set already holds the id.
			s.log.Error("Failed to persist processed transaction", "tx", ev.TxID, "err", err)
			imetrics.App().ErrorsTotal.WithLabelValues(imetrics.ComponentStore, "flush").Inc()
			continue
		}
		s.log.Info("Processed lock event", "tx", ev.TxID, "block", ev.BlockNumber, "amount", ev.Amount)
	}
	return nil
}

// sleepFor waits for d or until cancellation. It returns false when the
// context was canceled.
func (s *ListenerService) sleepFor(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// LastProcessedBlock reports the highest fully processed source height.
func (s *ListenerService) LastProcessedBlock() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProcessed
}

func (s *ListenerService) setLastProcessed(n uint64) {
	s.mu.Lock()
	if n > s.lastProcessed {
		s.lastProcessed = n
	}
	s.mu.Unlock()
}

// Stop cancels the listening goroutine. The caller waits on the shared
// WaitGroup for the current step to drain.
func (s *ListenerService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		s.log.Trace("Relay listener already stopped")
		return
	}
	s.log.Trace("Cancelling relay listener...")
	cancel()
}
