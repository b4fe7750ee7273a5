// cmd/metaringest is the METAR entry point named in spec §6.4: a
// single-shot batch ingestion over a comma-separated station list, or a
// continuous mode driven by -interval-seconds/-duration-minutes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmp/skywx/blobstore"
	"github.com/mmp/skywx/cmd/internal/cli"
	"github.com/mmp/skywx/ingest"
	"github.com/mmp/skywx/log"
	"github.com/mmp/skywx/metarparser"
	"github.com/mmp/skywx/parser"
	"github.com/mmp/skywx/speedlayer"
	"github.com/mmp/skywx/upstream"
	"github.com/mmp/skywx/weather"
)

func main() {
	cfg := cli.RegisterFlags("metaringest")
	flag.Parse()

	minLat, minLon, maxLat, maxLon, hasBBox, err := cfg.BoundingBox()
	if err != nil {
		cli.Fatal("metaringest: %v", err)
	}

	stations := cfg.StationIDs()
	if !hasBBox && len(stations) == 0 {
		cli.Fatal("metaringest: -stations or -bbox is required")
	}

	lg := cfg.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cfg.NewBlobStore(ctx)
	if err != nil {
		cli.Fatal("metaringest: %v", err)
	}
	defer store.Close()

	client := cfg.NewUpstreamClient()
	uploader := blobstore.NewUploader(store).WithLogger(lg)
	p := metarparser.New()

	if hasBBox {
		runRegion(ctx, client, p, uploader, minLat, minLon, maxLat, maxLon, lg)
		return
	}

	orch := ingest.New[*weather.NOAAReport](
		"NOAA-METAR",
		ingest.NOAAMETARAdapter(client, p),
		ingest.NewNOAAMETARUploader(uploader),
		ingest.WithMaxConcurrentFetches[*weather.NOAAReport](cfg.MaxConcurrent),
		ingest.WithLogger[*weather.NOAAReport](lg),
	)
	defer orch.Shutdown()

	if cfg.Continuous {
		runContinuous(ctx, orch, stations, cfg.IntervalSeconds, cfg.DurationMinutes, lg)
		return
	}

	if cfg.Sequential {
		result := orch.IngestStationsSequential(ctx, stations)
		lg.Infof("metaringest: %d succeeded, %d failed, success rate %.2f", len(result.Successes), len(result.Failures), result.SuccessRate())
		for station, ferr := range result.Failures {
			fmt.Fprintf(os.Stderr, "metaringest: %s: %v\n", station, ferr)
		}
		if len(result.Failures) > 0 {
			os.Exit(1)
		}
		return
	}

	reports := orch.IngestStationsBatch(ctx, stations)
	snap := orch.MetricsSnapshot()
	lg.Infof("metaringest: %d of %d stations ingested (fetch_attempts=%d fetch_failures=%d no_data=%d), %s uploaded",
		len(reports), len(stations), snap.FetchAttempts, snap.FetchFailures, snap.NoDataCount, uploader.BytesUploaded())
}

// runRegion drives the speed-layer processor's single-shot bounding-box
// path (§4.3 processRegion): one upstream fetch over the box, then
// per-record validate/enrich/upload through speedlayer.Processor rather
// than the per-station Orchestrator, since region ingestion has no
// per-station id to drive the Orchestrator's state machine with.
func runRegion(ctx context.Context, client *upstream.Client, p parser.Parser, uploader *blobstore.Uploader,
	minLat, minLon, maxLat, maxLon float64, lg *log.Logger) {

	proc := speedlayer.New[*weather.NOAAReport](
		nil, // no per-station fetch in region mode
		ingest.NOAAMETARRegionFetcher(client, p),
		nil, // ProcessRegion uploads via uploadBatch, not the per-report Upload func
		speedlayer.WithLogger[*weather.NOAAReport](lg),
	)
	defer proc.Shutdown()

	reports, err := proc.ProcessRegion(ctx, minLat, minLon, maxLat, maxLon, uploader.UploadBatch)
	if err != nil {
		cli.Fatal("metaringest: region ingestion failed: %v", err)
	}
	lg.Infof("metaringest: %d stations ingested from bbox [%v,%v,%v,%v], %s uploaded",
		len(reports), minLat, minLon, maxLat, maxLon, uploader.BytesUploaded())
}

// runContinuous drives SchedulePeriodicIngestion until durationMinutes
// elapses (0 means run until the process is interrupted) and then waits
// for Shutdown's grace windows via the deferred call in main.
func runContinuous(ctx context.Context, orch *ingest.Orchestrator[*weather.NOAAReport], stations []string, intervalSeconds, durationMinutes int, lg *log.Logger) {
	runCtx := ctx
	if durationMinutes > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(durationMinutes)*time.Minute)
		defer cancel()
	}
	orch.SchedulePeriodicIngestion(runCtx, stations, time.Duration(intervalSeconds)*time.Second)
	<-runCtx.Done()
	lg.Infof("metaringest: continuous run stopping")
}
