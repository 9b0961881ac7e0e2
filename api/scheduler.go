/*
scheduler.go - Optional periodic generation trigger

PURPOSE:
  The engine itself never schedules anything: periodic invocation of the
  batch generator is an external trigger's responsibility. This scheduler
  is that trigger for standalone deployments - a background goroutine
  that periodically generates commissions for the most recently completed
  calendar month. Because generation is idempotent, firing repeatedly for
  the same month is harmless: re-runs produce only alreadyExists skips.

DESIGN:
  - Runs a goroutine with a configurable check interval
  - Targets the previous calendar month at each tick
  - Disabled by default; opt in via the -scheduler flag

USAGE:
  scheduler := NewGenerationScheduler(handler.Generator)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - commission/generator.go: Idempotent batch generation
  - cmd/server/main.go: Flag wiring
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/commission-engine/commission"
)

// GenerationScheduler periodically sweeps the previous calendar month.
type GenerationScheduler struct {
	Generator     *commission.BatchGenerator
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewGenerationScheduler creates a new scheduler, disabled by default.
func NewGenerationScheduler(gen *commission.BatchGenerator) *GenerationScheduler {
	return &GenerationScheduler{
		Generator:     gen,
		CheckInterval: 1 * time.Hour,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)

	go gs.run()

	log.Printf("[Scheduler] Started with check interval: %v", gs.CheckInterval)
}

// Stop stops the scheduler.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		gs.ticker.Stop()
		close(gs.stop)
		gs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (gs *GenerationScheduler) run() {
	defer gs.wg.Done()

	// Run immediately on start
	gs.sweep()

	for {
		select {
		case <-gs.ticker.C:
			gs.sweep()
		case <-gs.stop:
			return
		}
	}
}

// sweep generates for the previous calendar month as the system actor.
func (gs *GenerationScheduler) sweep() {
	// Anchor on the first of the current month before stepping back, so
	// month-end dates don't normalize into the wrong month.
	now := time.Now().UTC()
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	period := commission.MonthOf(prev.Year(), prev.Month())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := gs.Generator.GenerateForPeriod(ctx, period, commission.Actor{
		ID:   "scheduler",
		Role: commission.RoleAdmin,
	})
	if err != nil {
		log.Printf("[Scheduler] Generation for %s failed: %v", period, err)
		return
	}
	if len(report.Created) > 0 || len(report.Failed) > 0 {
		log.Printf("[Scheduler] Generated %s: %d created, %d failed",
			period, len(report.Created), len(report.Failed))
	}
}
