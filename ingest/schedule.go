package ingest

import (
	"context"
	"time"
)

// SchedulePeriodicIngestion runs IngestStationsBatch on a fixed-rate
// ticker: the first run fires immediately, then every interval
// thereafter, until ctx is cancelled or Shutdown is called.
//
// Open question (§9): if one run is still in flight when the next tick
// fires, this implementation lets them overlap — each tick launches its
// own goroutine rather than skipping the tick or blocking the ticker.
// Overlap is preferred over skip-if-running because a slow run
// (upstream degraded, large station list) would otherwise silently
// starve the schedule; the per-run worker-pool cap and batch budget
// already bound how much concurrent work a pile-up of overlapping runs
// can do, so overlap degrades gracefully rather than compounding.
func (o *Orchestrator[T]) SchedulePeriodicIngestion(ctx context.Context, stationIDs []string, interval time.Duration) {
	timerCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.cancelTimers = cancel
	o.timerDone = make(chan struct{})
	done := o.timerDone
	o.mu.Unlock()

	go func() {
		defer close(done)

		runOnce := func() {
			o.inFlight.Add(1)
			defer o.inFlight.Done()
			o.IngestStationsBatch(timerCtx, stationIDs)
		}

		go runOnce()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-timerCtx.Done():
				return
			case <-ticker.C:
				o.mu.Lock()
				closed := o.closed
				o.mu.Unlock()
				if closed {
					return
				}
				go runOnce()
			}
		}
	}()
}
