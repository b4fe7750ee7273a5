// Package speedlayer is the Speed-Layer Processor (C4): it turns a
// single freshly-fetched report into a validated, enriched, uploaded
// object, and fans that out over a station list or a bounding-box
// region. It depends on package ingest only for the shared
// ReportEnvelope/adapter shapes (StationFetcher is satisfied by the
// same ingest.NOAAMETARAdapter/NOAATAFAdapter closures the Orchestrator
// uses); it is not layered underneath the Orchestrator (C5), and has
// none of C5's state-machine/metrics-counter concerns. The two
// are parallel consumers of the same fetch/upload closures: cmd/*
// picks the Orchestrator for per-station ingestion and the Processor's
// ProcessRegion for single-shot bounding-box runs, where there is no
// per-station id to drive a state machine with.
package speedlayer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmp/skywx/ingest"
	"github.com/mmp/skywx/log"
	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

const (
	defaultMaxConcurrentRequests = 5
	defaultBatchBudget           = 60 * time.Second
)

// StationFetcher retrieves and parses the latest report for a single
// station; satisfied by the same adapters package ingest uses
// (ingest.NOAAMETARAdapter / ingest.NOAATAFAdapter), since "fetch the
// latest report for a station" is identical at this layer.
type StationFetcher[T ingest.ReportEnvelope] func(ctx context.Context, stationID string) (report T, hasData bool, err error)

// RegionFetcher retrieves every report in a bounding box in one upstream
// call, already parsed into T.
type RegionFetcher[T ingest.ReportEnvelope] func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]T, error)

// Upload is the C3 upload step for a single report, returning the
// object-store key it was stored at.
type Upload[T ingest.ReportEnvelope] func(ctx context.Context, report T) (key string, err error)

// Processor implements C4 over a single StationFetcher/RegionFetcher
// pair. One instance per source/report-type, like Orchestrator.
type Processor[T ingest.ReportEnvelope] struct {
	fetch  StationFetcher[T]
	region RegionFetcher[T]
	upload Upload[T]
	lg     *log.Logger

	maxConcurrentRequests int
	batchBudget           time.Duration

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// Option configures a Processor at construction.
type Option[T ingest.ReportEnvelope] func(*Processor[T])

// WithMaxConcurrentRequests overrides the default worker-pool size of 5.
func WithMaxConcurrentRequests[T ingest.ReportEnvelope](n int) Option[T] {
	return func(p *Processor[T]) { p.maxConcurrentRequests = n }
}

// WithBatchBudget overrides the default 60-second batch wait budget.
func WithBatchBudget[T ingest.ReportEnvelope](d time.Duration) Option[T] {
	return func(p *Processor[T]) { p.batchBudget = d }
}

// WithLogger attaches a structured logger; nil is fine.
func WithLogger[T ingest.ReportEnvelope](lg *log.Logger) Option[T] {
	return func(p *Processor[T]) { p.lg = lg }
}

// New constructs a Processor.
func New[T ingest.ReportEnvelope](fetch StationFetcher[T], region RegionFetcher[T], upload Upload[T], opts ...Option[T]) *Processor[T] {
	p := &Processor[T]{
		fetch:                 fetch,
		region:                region,
		upload:                upload,
		maxConcurrentRequests: defaultMaxConcurrentRequests,
		batchBudget:           defaultBatchBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessStation implements the §4.3 processStation pipeline for one
// station: fetch, validate, enrich, upload.
func (p *Processor[T]) ProcessStation(ctx context.Context, stationID string) (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, wxerrors.New(wxerrors.StorageError, stationID)
	}
	p.inFlight.Add(1)
	p.mu.Unlock()
	defer p.inFlight.Done()

	report, hasData, err := p.fetch(ctx, stationID)
	if err != nil {
		return zero, err
	}
	if !hasData {
		return zero, wxerrors.New(wxerrors.NoData, stationID)
	}

	if err := validate(report); err != nil {
		return zero, err
	}

	enrich(report)

	key, err := p.upload(ctx, report)
	if err != nil {
		return zero, wxerrors.Wrap(wxerrors.StorageError, stationID, err)
	}
	report.AddMetadata("storage_location", key)

	return report, nil
}

func validate(report ingest.ReportEnvelope) error {
	stationID := report.StationID()
	if stationID == "" {
		return wxerrors.Newf(wxerrors.InvalidData, stationID, "stationId is required")
	}
	if report.Source() == weather.SourceUnknown {
		return wxerrors.Newf(wxerrors.InvalidData, stationID, "source is required")
	}
	return nil
}

func enrich(report ingest.ReportEnvelope) {
	report.AddMetadata("validated", true)
	report.AddMetadata("validation_timestamp", time.Now().UTC().Format(time.RFC3339))
	report.AddMetadata("processor", "SpeedLayerProcessor")
	report.SetProcessingLayer(weather.SpeedLayer)
}

// ProcessBatch fans ProcessStation out over a bounded worker pool of
// maxConcurrentRequests (default 5), waiting up to the 60-second batch
// budget; reports are returned in order of completion, not input order.
// Failed stations are logged and dropped, not surfaced in the return —
// the orchestrator layer is where a strongly-typed failure-visible
// aggregate belongs.
func (p *Processor[T]) ProcessBatch(ctx context.Context, stationIDs []string) []T {
	ctx, cancel := context.WithTimeout(ctx, p.batchBudget)
	defer cancel()

	var mu sync.Mutex
	var out []T
	var g errgroup.Group
	g.SetLimit(p.maxConcurrentRequests)

	for _, id := range stationIDs {
		g.Go(func() error {
			report, err := p.ProcessStation(ctx, id)
			if err != nil {
				p.lg.Warnf("%s: speed-layer processing failed: %v", id, err)
				return nil
			}
			mu.Lock()
			out = append(out, report)
			mu.Unlock()
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
		p.lg.Warnf("speed-layer batch budget exhausted before all %d stations completed", len(stationIDs))
	}

	mu.Lock()
	out = append([]T(nil), out...)
	mu.Unlock()
	return out
}

// ProcessRegion implements §4.3 processRegion: a single bounding-box
// fetch, per-record validate/enrich, then a single uploadBatch-style call,
// with storage locations paired back to records positionally, truncated
// to the shorter of the two sequences (the documented behavior when an
// upload drops records rather than failing the whole batch).
func (p *Processor[T]) ProcessRegion(ctx context.Context, minLat, minLon, maxLat, maxLon float64, uploadBatch func(ctx context.Context, reports []T) ([]string, error)) ([]T, error) {
	reports, err := p.region(ctx, minLat, minLon, maxLat, maxLon)
	if err != nil {
		return nil, err
	}

	valid := reports[:0:0]
	for _, r := range reports {
		if err := validate(r); err != nil {
			p.lg.Warnf("%s: dropped from region batch: %v", r.StationID(), err)
			continue
		}
		enrich(r)
		valid = append(valid, r)
	}

	keys, err := uploadBatch(ctx, valid)
	if err != nil {
		return nil, wxerrors.Wrap(wxerrors.StorageError, "", err)
	}

	n := len(valid)
	if len(keys) < n {
		n = len(keys)
	}
	for i := 0; i < n; i++ {
		valid[i].AddMetadata("storage_location", keys[i])
	}

	return valid, nil
}

// RunContinuous loops ProcessBatch until now+durationMinutes elapses,
// sleeping intervalSeconds between runs; ctx cancellation breaks the
// loop promptly even mid-sleep.
func (p *Processor[T]) RunContinuous(ctx context.Context, stationIDs []string, intervalSeconds, durationMinutes int) {
	deadline := time.Now().Add(time.Duration(durationMinutes) * time.Minute)
	interval := time.Duration(intervalSeconds) * time.Second

	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}
		p.ProcessBatch(ctx, stationIDs)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Shutdown stops the processor from accepting new work and waits for
// in-flight station tasks to finish.
func (p *Processor[T]) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.inFlight.Wait()
}

// IsHealthy reports whether the processor still accepts work.
func (p *Processor[T]) IsHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}
