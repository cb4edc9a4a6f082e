/*
scheduler.go - Periodic planning run trigger

PURPOSE:
  Regenerative planning is typically re-run on a schedule (nightly, or
  every few hours) in addition to on-demand triggers. The scheduler fires
  the orchestrator at a fixed interval; the scope lock inside the
  orchestrator guarantees a scheduled run and a manual trigger never
  interleave.

CONFIGURATION:
  - Interval: how often to run (zero disables the scheduler)

USAGE:
  sched := NewPlanningScheduler(handler, 6*time.Hour)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - handlers.go: the same trigger path, driven by HTTP
*/
package api

import (
	"context"
	"sync"
	"time"
)

// PlanningScheduler triggers runs at a fixed interval.
type PlanningScheduler struct {
	Handler  *Handler
	Interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPlanningScheduler creates a scheduler. An interval of zero disables it.
func NewPlanningScheduler(h *Handler, interval time.Duration) *PlanningScheduler {
	return &PlanningScheduler{
		Handler:  h,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins periodic triggering.
func (ps *PlanningScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.Interval <= 0 {
		ps.Handler.Log.Info("planning scheduler disabled")
		return
	}

	ps.ticker = time.NewTicker(ps.Interval)
	ps.wg.Add(1)
	go ps.run()
	ps.Handler.Log.WithField("interval", ps.Interval.String()).Info("planning scheduler started")
}

// Stop halts the scheduler. In-flight runs finish on their own.
func (ps *PlanningScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.Handler.Log.Info("planning scheduler stopped")
	}
}

func (ps *PlanningScheduler) run() {
	defer ps.wg.Done()
	for {
		select {
		case <-ps.ticker.C:
			scenario, orch := ps.Handler.current()
			id, err := orch.Start(context.Background(), scenario.AsOf)
			if err != nil {
				ps.Handler.Log.WithError(err).Error("scheduled planning run could not be created")
				continue
			}
			ps.Handler.Log.WithField("run_id", id).Debug("scheduled planning run triggered")
		case <-ps.stop:
			return
		}
	}
}
