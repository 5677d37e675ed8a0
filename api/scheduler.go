/*
scheduler.go - Automated monthly billing scheduler

PURPOSE:
  Periodically checks whether the previous billing month has been billed
  for every registered Gram Panchayat and runs the billing pass where it
  hasn't. Bill generation is idempotent per house+period (duplicate bills
  are skipped), so running the check repeatedly is safe.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Bills the most recently completed month, never the running one
  - Houses whose meter was not read simply bill at zero usage; arrears
    still roll forward

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewBillingScheduler(store, handler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateRun endpoint (manual billing run)
  - billing/ledger.go: BillGenerator
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jaldhara/billing-engine/billing"
)

// BillingScheduler runs the monthly billing pass automatically.
type BillingScheduler struct {
	Store         billing.TxStore
	Handler       *Handler
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBillingScheduler creates a new scheduler.
func NewBillingScheduler(store billing.TxStore, handler *Handler, log *zap.Logger) *BillingScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingScheduler{
		Store:         store,
		Handler:       handler,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BillingScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		bs.Log.Info("billing scheduler disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	bs.Log.Info("billing scheduler started", zap.Duration("check_interval", bs.CheckInterval))
}

// Stop stops the scheduler.
func (bs *BillingScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		bs.Log.Info("billing scheduler stopped")
	}
}

func (bs *BillingScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.checkAndProcess()

	for {
		select {
		case <-bs.ticker.C:
			bs.checkAndProcess()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BillingScheduler) checkAndProcess() {
	ctx := context.Background()

	// Bill the month that just closed, never the one still running.
	period := billing.CurrentPeriod().Previous()

	panchayats, err := bs.Store.ListPanchayats(ctx)
	if err != nil {
		bs.Log.Error("scheduler failed to list panchayats", zap.Error(err))
		return
	}

	generatedTotal := 0
	for _, gp := range panchayats {
		if _, err := bs.Store.TariffByPanchayat(ctx, gp.ID); err != nil {
			// No rate card yet; nothing to bill against.
			continue
		}

		bills, err := bs.Handler.Generator.GenerateForPanchayat(ctx, gp.ID, period)
		if err != nil {
			bs.Log.Error("scheduled billing run failed",
				zap.String("panchayat_id", string(gp.ID)),
				zap.String("period", period.String()),
				zap.Error(err),
			)
			continue
		}
		generatedTotal += len(bills)
	}

	if generatedTotal > 0 {
		bs.Log.Info("scheduled billing run completed",
			zap.String("period", period.String()),
			zap.Int("bills_generated", generatedTotal),
		)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (bs *BillingScheduler) RunNow() {
	bs.checkAndProcess()
}

// NextRunTime returns when the next scheduled check will occur.
func (bs *BillingScheduler) NextRunTime() time.Time {
	return time.Now().Add(bs.CheckInterval)
}
