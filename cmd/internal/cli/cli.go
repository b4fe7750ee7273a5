// Package cli is the small flag-parsing/wiring helper shared by the
// per-type ingestion binaries (cmd/metaringest, cmd/tafingest), grounded
// on cmd/wxingest/main.go's flag.* globals-parsed-in-main style.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmp/skywx/blobstore"
	"github.com/mmp/skywx/log"
	"github.com/mmp/skywx/upstream"
)

// Config holds the flags common to both the batch and continuous modes
// of §6.4: station selection, upstream/storage wiring, and logging.
type Config struct {
	Stations        string
	Sequential      bool
	Continuous      bool
	IntervalSeconds int
	DurationMinutes int
	MaxConcurrent   int
	BaseURL         string
	TimeoutSeconds  int
	Backend         string
	Bucket          string
	LogLevel        string
	LogDir          string
	BBox            string
}

// RegisterFlags wires Config's fields into flag.CommandLine under the
// names named in SPEC_FULL §5/C9; binaryName only affects -h output.
func RegisterFlags(binaryName string) *Config {
	c := &Config{}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", binaryName)
		flag.PrintDefaults()
	}
	flag.StringVar(&c.Stations, "stations", "", "comma-separated ICAO station ids")
	flag.BoolVar(&c.Sequential, "sequential", false, "use the failure-visible sequential ingestion variant and exit 1 on any station failure")
	flag.BoolVar(&c.Continuous, "continuous", false, "run continuously instead of a single batch")
	flag.IntVar(&c.IntervalSeconds, "interval-seconds", 60, "seconds between runs in continuous mode")
	flag.IntVar(&c.DurationMinutes, "duration-minutes", 0, "stop continuous mode after this many minutes (0 = run until interrupted)")
	flag.IntVar(&c.MaxConcurrent, "max-concurrent-fetches", 10, "worker-pool size for per-station fetches")
	flag.StringVar(&c.BaseURL, "base-url", "https://aviationweather.gov/api/data", "upstream aviation weather API base URL")
	flag.IntVar(&c.TimeoutSeconds, "timeout-seconds", 10, "per-request upstream timeout in seconds")
	flag.StringVar(&c.Backend, "backend", "memory", "object-store backend: s3, gcs, or memory")
	flag.StringVar(&c.Bucket, "bucket", "", "object-store bucket name (required for s3/gcs backends)")
	flag.StringVar(&c.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&c.LogDir, "log-dir", "", "log directory (defaults per daemon/one-shot mode)")
	flag.StringVar(&c.BBox, "bbox", "", "minLat,minLon,maxLat,maxLon: run the speed-layer region processor over this bounding box instead of -stations")
	return c
}

// StationIDs splits the -stations flag on commas, trimming whitespace
// and dropping empty entries.
func (c *Config) StationIDs() []string {
	var ids []string
	for _, s := range strings.Split(c.Stations, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// BoundingBox parses the -bbox flag ("minLat,minLon,maxLat,maxLon"). ok
// is false when -bbox was not set.
func (c *Config) BoundingBox() (minLat, minLon, maxLat, maxLon float64, ok bool, err error) {
	if c.BBox == "" {
		return 0, 0, 0, 0, false, nil
	}
	parts := strings.Split(c.BBox, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false, fmt.Errorf("-bbox must have 4 comma-separated values, got %q", c.BBox)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, false, fmt.Errorf("-bbox: invalid number %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], true, nil
}

// NewLogger constructs the process logger; daemon is true in continuous
// mode, matching the teacher's daemon/one-shot retention split.
func (c *Config) NewLogger() *log.Logger {
	return log.New(c.Continuous, c.LogLevel, c.LogDir)
}

// NewUpstreamClient builds the upstream.Client from the configured base
// URL and timeout.
func (c *Config) NewUpstreamClient() *upstream.Client {
	return upstream.New(c.BaseURL, time.Duration(c.TimeoutSeconds)*time.Second)
}

// NewBlobStore constructs the configured BlobStore backend.
func (c *Config) NewBlobStore(ctx context.Context) (blobstore.BlobStore, error) {
	switch c.Backend {
	case "s3":
		if c.Bucket == "" {
			return nil, fmt.Errorf("-bucket is required for the s3 backend")
		}
		return blobstore.NewS3Backend(ctx, c.Bucket)
	case "gcs":
		if c.Bucket == "" {
			return nil, fmt.Errorf("-bucket is required for the gcs backend")
		}
		return blobstore.NewGCSBackend(ctx, c.Bucket)
	case "memory":
		return blobstore.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want s3, gcs, or memory)", c.Backend)
	}
}

// Fatal prints msg to stderr and exits 1. Used for the startup-time
// failures (bad flags, unreachable storage) that precede any station
// ingestion.
func Fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
