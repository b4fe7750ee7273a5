// Package metrics is C6: the atomic counter set the orchestrator (C5)
// stamps at each state-machine transition, and the per-run aggregate
// IngestionResult the sequential variant builds.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counters is the atomic counter set for a single orchestrator instance.
// Each field mutates atomically; a Snapshot reads each counter
// atomically but is not a cross-counter-consistent point-in-time view
// (§5), which is acceptable per the spec.
type Counters struct {
	fetchAttempts   atomic.Int64
	fetchSuccesses  atomic.Int64
	fetchFailures   atomic.Int64
	noDataCount     atomic.Int64
	uploadSuccesses atomic.Int64
	uploadFailures  atomic.Int64
}

// Snapshot is an immutable copy of Counters, read one counter at a time.
type Snapshot struct {
	FetchAttempts   int64
	FetchSuccesses  int64
	FetchFailures   int64
	NoDataCount     int64
	UploadSuccesses int64
	UploadFailures  int64
}

func (c *Counters) IncFetchAttempts()   { c.fetchAttempts.Add(1) }
func (c *Counters) IncFetchSuccesses()  { c.fetchSuccesses.Add(1) }
func (c *Counters) IncFetchFailures()   { c.fetchFailures.Add(1) }
func (c *Counters) IncNoData()          { c.noDataCount.Add(1) }
func (c *Counters) IncUploadSuccesses() { c.uploadSuccesses.Add(1) }
func (c *Counters) IncUploadFailures()  { c.uploadFailures.Add(1) }

// Snapshot reads every counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FetchAttempts:   c.fetchAttempts.Load(),
		FetchSuccesses:  c.fetchSuccesses.Load(),
		FetchFailures:   c.fetchFailures.Load(),
		NoDataCount:     c.noDataCount.Load(),
		UploadSuccesses: c.uploadSuccesses.Load(),
		UploadFailures:  c.uploadFailures.Load(),
	}
}

// SuccessRate is upload successes over fetch attempts, treating 0
// attempts as a 0 rate rather than dividing by zero; callers must treat
// this as approximate per the non-cross-counter-atomic snapshot (§5).
func (s Snapshot) SuccessRate() float64 {
	if s.FetchAttempts == 0 {
		return 0
	}
	return float64(s.UploadSuccesses) / float64(s.FetchAttempts)
}

// IngestionResult is the sequential orchestrator variant's failure-visible
// aggregate (§3, §4.4): single-writer during construction, read-only
// once returned. T is the per-station report type a given orchestrator
// instance produces.
type IngestionResult[T any] struct {
	Successes map[string]T
	Failures  map[string]error
	Duration  time.Duration
}

// SuccessRate is successes over the total stations attempted.
func (r IngestionResult[T]) SuccessRate() float64 {
	total := len(r.Successes) + len(r.Failures)
	if total == 0 {
		return 0
	}
	return float64(len(r.Successes)) / float64(total)
}
