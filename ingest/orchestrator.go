// Package ingest is the Ingestion Orchestrator (C5) — the hard
// subsystem. Orchestrator is a template for source-specific
// orchestrators (NOAA METAR, NOAA TAF): the state machine in §4.4 is
// fixed, and the only per-source step is the SourceAdapter a caller
// supplies at construction (§9: "pass the per-source fetch as a
// first-class function/closure").
package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmp/skywx/log"
	"github.com/mmp/skywx/metrics"
	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

// ReportEnvelope is the surface the orchestrator's generic validate/
// enrich/upload steps need from a report; *weather.NOAAReport and
// *weather.TAFReport both satisfy it through their embedded
// *weather.WeatherData.
type ReportEnvelope interface {
	StationID() string
	Source() weather.DataSource
	RawData() (string, bool)
	SetProcessingLayer(weather.ProcessingLayer)
	AddMetadata(key string, value any)
}

// SourceAdapter is the one subclassed step of the template (§9): given a
// station id, fetch and parse the latest report from the source.
// hasData=false, err=nil means the upstream returned an empty result
// (NO_DATA, not a failure); a non-nil err means the fetch itself failed
// (FETCH_FAILED) and must already be classified as a *wxerrors.Error.
type SourceAdapter[T ReportEnvelope] func(ctx context.Context, stationID string) (report T, hasData bool, err error)

// Uploader is the upload step (§4.4 PROCESSING -> DONE/UPLOAD_FAILED);
// satisfied by (*blobstore.Uploader).Upload / .UploadTAF.
type Uploader[T ReportEnvelope] func(ctx context.Context, report T) (key string, err error)

const (
	defaultMaxConcurrentFetches = 10
	defaultBatchBudget          = 2 * time.Minute
	defaultShutdownGrace        = 60 * time.Second
	defaultTimerGrace           = 10 * time.Second
)

// Orchestrator runs the fixed state machine in §4.4 over a SourceAdapter.
// One instance per source (e.g. one for NOAA METAR, one for NOAA TAF).
type Orchestrator[T ReportEnvelope] struct {
	sourceName string
	adapter    SourceAdapter[T]
	upload     Uploader[T]
	lg         *log.Logger

	maxConcurrentFetches int
	batchBudget          time.Duration

	counters metrics.Counters

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup

	cancelTimers context.CancelFunc
	timerDone    chan struct{}
}

// Option configures an Orchestrator at construction.
type Option[T ReportEnvelope] func(*Orchestrator[T])

// WithMaxConcurrentFetches overrides the default worker-pool size of 10.
func WithMaxConcurrentFetches[T ReportEnvelope](n int) Option[T] {
	return func(o *Orchestrator[T]) { o.maxConcurrentFetches = n }
}

// WithBatchBudget overrides the default 2-minute batch wait budget.
func WithBatchBudget[T ReportEnvelope](d time.Duration) Option[T] {
	return func(o *Orchestrator[T]) { o.batchBudget = d }
}

// WithLogger attaches a structured logger; nil is fine (Logger tolerates
// a nil receiver).
func WithLogger[T ReportEnvelope](lg *log.Logger) Option[T] {
	return func(o *Orchestrator[T]) { o.lg = lg }
}

// New constructs an Orchestrator. sourceName labels log lines only. No
// workers are started here: each IngestStationsBatch call builds its own
// bounded errgroup, and Shutdown waits for in-flight station tasks.
func New[T ReportEnvelope](sourceName string, adapter SourceAdapter[T], upload Uploader[T], opts ...Option[T]) *Orchestrator[T] {
	o := &Orchestrator[T]{
		sourceName:           sourceName,
		adapter:              adapter,
		upload:               upload,
		maxConcurrentFetches: defaultMaxConcurrentFetches,
		batchBudget:          defaultBatchBudget,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ingestStation runs the §4.4 state machine for a single station.
func (o *Orchestrator[T]) ingestStation(ctx context.Context, stationID string) (T, error) {
	var zero T

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return zero, wxerrors.New(wxerrors.StorageError, stationID)
	}
	o.inFlight.Add(1)
	o.mu.Unlock()
	defer o.inFlight.Done()

	// INIT: station-code validation happens here, before FETCHING, so an
	// InvalidStationCode rejection makes no HTTP call and leaves every
	// counter untouched (§4.1, S2).
	if !weather.ValidateStationCode(stationID) {
		return zero, wxerrors.New(wxerrors.InvalidStationCode, stationID)
	}

	start := time.Now()

	// FETCHING
	o.counters.IncFetchAttempts()
	report, hasData, err := o.adapter(ctx, stationID)
	if err != nil {
		// FETCH_FAILED
		o.counters.IncFetchFailures()
		o.lg.Warnf("%s: fetch failed: %v", stationID, err)
		return zero, err
	}
	if !hasData {
		// NO_DATA
		o.counters.IncNoData()
		return zero, wxerrors.New(wxerrors.NoData, stationID)
	}

	// VALIDATING
	o.counters.IncFetchSuccesses()
	if err := validateNOAA(report); err != nil {
		o.counters.IncFetchFailures()
		o.lg.Warnf("%s: invalid data: %v", stationID, err)
		return zero, err
	}

	// PROCESSING
	report.AddMetadata("validated", true)
	report.AddMetadata("validation_timestamp", time.Now().UTC().Format(time.RFC3339))
	report.AddMetadata("processor", "SpeedLayerProcessor")
	report.SetProcessingLayer(weather.SpeedLayer)

	key, err := o.upload(ctx, report)
	if err != nil {
		// UPLOAD_FAILED
		o.counters.IncUploadFailures()
		o.lg.Errorf("%s: upload failed: %v", stationID, err)
		return zero, wxerrors.Wrap(wxerrors.StorageError, stationID, err)
	}
	report.AddMetadata("storage_location", key)
	report.AddMetadata("ingestion_duration_ms", time.Since(start).Milliseconds())

	// DONE
	o.counters.IncUploadSuccesses()
	return report, nil
}

// validateNOAA is the NOAA-variant validation named in §4.4:
// stationId, rawData, and source must be non-empty/non-null.
func validateNOAA(report ReportEnvelope) error {
	stationID := report.StationID()
	if stationID == "" {
		return wxerrors.Newf(wxerrors.InvalidData, stationID, "stationId is required")
	}
	if raw, ok := report.RawData(); !ok || raw == "" {
		return wxerrors.Newf(wxerrors.InvalidData, stationID, "rawData is required")
	}
	if report.Source() == weather.SourceUnknown {
		return wxerrors.Newf(wxerrors.InvalidData, stationID, "source is required")
	}
	return nil
}

// IngestStation is the exported single-station entry point.
func (o *Orchestrator[T]) IngestStation(ctx context.Context, stationID string) (T, error) {
	return o.ingestStation(ctx, stationID)
}

// IngestStationsBatch fans out ingestStation over a bounded worker pool
// of maxConcurrentFetches, waiting up to the batch budget (default 2
// minutes); on expiry it returns whichever succeeded so far rather than
// failing the call. Per-station failures are swallowed from the return
// value — callers observe them via MetricsSnapshot. Concurrency is
// bounded with errgroup.Group.SetLimit rather than a hand-rolled
// semaphore channel; the group's member funcs never return a non-nil
// error, so one station's failure never cancels its peers (§4.4: "A
// failed station does not cancel peers").
func (o *Orchestrator[T]) IngestStationsBatch(ctx context.Context, stationIDs []string) []T {
	ctx, cancel := context.WithTimeout(ctx, o.batchBudget)
	defer cancel()

	var mu sync.Mutex
	var out []T
	var g errgroup.Group
	g.SetLimit(o.maxConcurrentFetches)

	for _, id := range stationIDs {
		g.Go(func() error {
			report, err := o.ingestStation(ctx, id)
			if err == nil {
				mu.Lock()
				out = append(out, report)
				mu.Unlock()
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		o.lg.Warnf("%s: batch budget exhausted before all %d stations completed", o.sourceName, len(stationIDs))
	}

	mu.Lock()
	out = append([]T(nil), out...)
	mu.Unlock()
	return out
}

// IngestStationsSequential is the failure-visible variant: it iterates
// serially and returns a full IngestionResult with successes, failures
// keyed by station, total duration, and derived success rate.
func (o *Orchestrator[T]) IngestStationsSequential(ctx context.Context, stationIDs []string) metrics.IngestionResult[T] {
	start := time.Now()
	result := metrics.IngestionResult[T]{
		Successes: make(map[string]T),
		Failures:  make(map[string]error),
	}
	for _, id := range stationIDs {
		report, err := o.ingestStation(ctx, id)
		if err != nil {
			result.Failures[id] = err
			continue
		}
		result.Successes[id] = report
	}
	result.Duration = time.Since(start)
	return result
}

// MetricsSnapshot reports the orchestrator's current counters.
func (o *Orchestrator[T]) MetricsSnapshot() metrics.Snapshot {
	return o.counters.Snapshot()
}

// IsHealthy reports whether the orchestrator is still accepting work.
func (o *Orchestrator[T]) IsHealthy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed
}

// Shutdown is the scoped-release operation (§4.3/§9): it stops accepting
// new work, waits up to 60s for in-flight station tasks and up to 10s
// for the timer pool, then returns. It never panics and never blocks
// past the documented grace windows.
func (o *Orchestrator[T]) Shutdown() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	cancelTimers := o.cancelTimers
	timerDone := o.timerDone
	o.mu.Unlock()

	if cancelTimers != nil {
		cancelTimers()
	}
	if timerDone != nil {
		select {
		case <-timerDone:
		case <-time.After(defaultTimerGrace):
			o.lg.Warnf("%s: timer pool did not stop within %s", o.sourceName, defaultTimerGrace)
		}
	}

	waitDone := make(chan struct{})
	go func() {
		o.inFlight.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(defaultShutdownGrace):
		o.lg.Warnf("%s: in-flight station tasks did not finish within %s", o.sourceName, defaultShutdownGrace)
	}
}
