package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReport(stationID string) *weather.NOAAReport {
	n := weather.NewNOAAReport(stationID, weather.ReportMETAR)
	n.SetRawData("METAR " + stationID + " ...")
	return n
}

func okAdapter(reports map[string]*weather.NOAAReport) SourceAdapter[*weather.NOAAReport] {
	return func(ctx context.Context, stationID string) (*weather.NOAAReport, bool, error) {
		r, ok := reports[stationID]
		if !ok {
			return nil, false, nil
		}
		return r, true, nil
	}
}

func memUploader(store map[string]string) Uploader[*weather.NOAAReport] {
	return func(ctx context.Context, report *weather.NOAAReport) (string, error) {
		key := "speed-layer/" + report.StationID()
		store[key] = "stored"
		return key, nil
	}
}

func TestIngestStationHappyPath(t *testing.T) {
	store := map[string]string{}
	o := New[*weather.NOAAReport]("noaa-metar",
		okAdapter(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}),
		memUploader(store))

	report, err := o.IngestStation(context.Background(), "KJFK")
	require.NoError(t, err)
	assert.Equal(t, "KJFK", report.StationID())

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.FetchAttempts)
	assert.Equal(t, int64(1), snap.FetchSuccesses)
	assert.Equal(t, int64(1), snap.UploadSuccesses)
	assert.Equal(t, int64(0), snap.UploadFailures)
	assert.Len(t, store, 1)
}

func TestIngestStationNoData(t *testing.T) {
	o := New[*weather.NOAAReport]("noaa-metar",
		okAdapter(map[string]*weather.NOAAReport{}),
		memUploader(map[string]string{}))

	_, err := o.IngestStation(context.Background(), "KZZZ")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.NoData))

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.FetchAttempts)
	assert.Equal(t, int64(1), snap.NoDataCount)
	assert.Equal(t, int64(0), snap.FetchSuccesses)
}

func TestIngestStationInvalidCodeLeavesCountersUntouched(t *testing.T) {
	adapterCalled := false
	adapter := func(ctx context.Context, stationID string) (*weather.NOAAReport, bool, error) {
		adapterCalled = true
		return nil, false, nil
	}
	o := New[*weather.NOAAReport]("noaa-metar", adapter, memUploader(map[string]string{}))

	_, err := o.IngestStation(context.Background(), "K1FK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.InvalidStationCode))
	assert.False(t, adapterCalled, "no fetch should be attempted for an invalid station code")

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(0), snap.FetchAttempts)
	assert.Equal(t, int64(0), snap.FetchFailures)
	assert.Equal(t, int64(0), snap.FetchSuccesses)
	assert.Equal(t, int64(0), snap.NoDataCount)
}

func TestIngestStationFetchFailed(t *testing.T) {
	adapter := func(ctx context.Context, stationID string) (*weather.NOAAReport, bool, error) {
		return nil, false, wxerrors.Wrap(wxerrors.NetworkError, stationID, errors.New("connection reset"))
	}
	o := New[*weather.NOAAReport]("noaa-metar", adapter, memUploader(map[string]string{}))

	_, err := o.IngestStation(context.Background(), "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.NetworkError))

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.FetchAttempts)
	assert.Equal(t, int64(1), snap.FetchFailures)
}

func TestIngestStationInvalidDataFailsValidation(t *testing.T) {
	invalid := weather.NewNOAAReport("KJFK", weather.ReportMETAR)
	// no SetRawData: rawData left unset, fails validateNOAA
	adapter := okAdapter(map[string]*weather.NOAAReport{"KJFK": invalid})
	o := New[*weather.NOAAReport]("noaa-metar", adapter, memUploader(map[string]string{}))

	_, err := o.IngestStation(context.Background(), "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.InvalidData))

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.FetchSuccesses)
	assert.Equal(t, int64(1), snap.FetchFailures)
}

func TestIngestStationUploadFailed(t *testing.T) {
	adapter := okAdapter(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")})
	failingUpload := func(ctx context.Context, report *weather.NOAAReport) (string, error) {
		return "", errors.New("bucket unreachable")
	}
	o := New[*weather.NOAAReport]("noaa-metar", adapter, failingUpload)

	_, err := o.IngestStation(context.Background(), "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.StorageError))

	snap := o.MetricsSnapshot()
	assert.Equal(t, int64(1), snap.UploadFailures)
	assert.Equal(t, int64(0), snap.UploadSuccesses)
}

func TestIngestStationsBatchBoundedConcurrency(t *testing.T) {
	reports := map[string]*weather.NOAAReport{}
	ids := []string{"KJFK", "KLGA", "KEWR", "KBOS", "KORD"}
	for _, id := range ids {
		reports[id] = validReport(id)
	}
	store := map[string]string{}
	o := New[*weather.NOAAReport]("noaa-metar", okAdapter(reports), memUploader(store),
		WithMaxConcurrentFetches[*weather.NOAAReport](2))

	out := o.IngestStationsBatch(context.Background(), ids)
	assert.Len(t, out, 5)
	assert.Len(t, store, 5)
}

func TestIngestStationsSequentialBuildsIngestionResult(t *testing.T) {
	reports := map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}
	o := New[*weather.NOAAReport]("noaa-metar", okAdapter(reports), memUploader(map[string]string{}))

	result := o.IngestStationsSequential(context.Background(), []string{"KJFK", "KZZZ"})
	assert.Len(t, result.Successes, 1)
	assert.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures, "KZZZ")
	assert.InDelta(t, 0.5, result.SuccessRate(), 0.0001)
}

func TestShutdownRejectsNewWorkAndIsIdempotent(t *testing.T) {
	o := New[*weather.NOAAReport]("noaa-metar",
		okAdapter(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}),
		memUploader(map[string]string{}))

	o.Shutdown()
	o.Shutdown() // must not block or panic on a second call

	assert.False(t, o.IsHealthy())
	_, err := o.IngestStation(context.Background(), "KJFK")
	assert.Error(t, err)
}

func TestSchedulePeriodicIngestionRunsImmediatelyThenOnInterval(t *testing.T) {
	store := map[string]string{}
	o := New[*weather.NOAAReport]("noaa-metar",
		okAdapter(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}),
		memUploader(store))

	ctx, cancel := context.WithCancel(context.Background())
	o.SchedulePeriodicIngestion(ctx, []string{"KJFK"}, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return o.MetricsSnapshot().UploadSuccesses >= 1
	}, time.Second, 5*time.Millisecond, "first run should fire immediately")

	assert.Eventually(t, func() bool {
		return o.MetricsSnapshot().UploadSuccesses >= 3
	}, time.Second, 5*time.Millisecond, "ticks should continue firing")

	cancel()
}
