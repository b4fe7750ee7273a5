package speedlayer

import (
	"context"
	"errors"
	"testing"

	"github.com/mmp/skywx/ingest"
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

func fetcherFor(reports map[string]*weather.NOAAReport) StationFetcher[*weather.NOAAReport] {
	return func(ctx context.Context, stationID string) (*weather.NOAAReport, bool, error) {
		r, ok := reports[stationID]
		if !ok {
			return nil, false, nil
		}
		return r, true, nil
	}
}

func recordingUpload(store map[string]string) Upload[*weather.NOAAReport] {
	return func(ctx context.Context, report *weather.NOAAReport) (string, error) {
		key := "speed-layer/" + report.StationID()
		store[key] = "stored"
		return key, nil
	}
}

func TestProcessStationHappyPath(t *testing.T) {
	store := map[string]string{}
	p := New[*weather.NOAAReport](fetcherFor(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}), nil, recordingUpload(store))

	report, err := p.ProcessStation(context.Background(), "KJFK")
	require.NoError(t, err)
	assert.Equal(t, weather.SpeedLayer, report.ProcessingLayer())
	assert.Len(t, store, 1)
}

func TestProcessStationNoData(t *testing.T) {
	p := New[*weather.NOAAReport](fetcherFor(map[string]*weather.NOAAReport{}), nil, recordingUpload(map[string]string{}))

	_, err := p.ProcessStation(context.Background(), "KZZZ")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.NoData))
}

func TestProcessStationUploadFailure(t *testing.T) {
	failing := func(ctx context.Context, report *weather.NOAAReport) (string, error) {
		return "", errors.New("object store down")
	}
	p := New[*weather.NOAAReport](fetcherFor(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}), nil, failing)

	_, err := p.ProcessStation(context.Background(), "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.StorageError))
}

func TestProcessBatchBoundedConcurrency(t *testing.T) {
	ids := []string{"KJFK", "KLGA", "KEWR", "KBOS"}
	reports := map[string]*weather.NOAAReport{}
	for _, id := range ids {
		reports[id] = validReport(id)
	}
	store := map[string]string{}
	p := New[*weather.NOAAReport](fetcherFor(reports), nil, recordingUpload(store), WithMaxConcurrentRequests[*weather.NOAAReport](2))

	out := p.ProcessBatch(context.Background(), ids)
	assert.Len(t, out, 4)
	assert.Len(t, store, 4)
}

func TestProcessBatchDropsFailedStationsFromReturn(t *testing.T) {
	reports := map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}
	p := New[*weather.NOAAReport](fetcherFor(reports), nil, recordingUpload(map[string]string{}))

	out := p.ProcessBatch(context.Background(), []string{"KJFK", "KZZZ"})
	assert.Len(t, out, 1)
	assert.Equal(t, "KJFK", out[0].StationID())
}

func TestProcessRegionPairsStorageLocationsPositionally(t *testing.T) {
	region := func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]*weather.NOAAReport, error) {
		return []*weather.NOAAReport{validReport("KJFK"), validReport("KLGA")}, nil
	}
	p := New[*weather.NOAAReport](nil, region, nil)

	uploadBatch := func(ctx context.Context, reports []*weather.NOAAReport) ([]string, error) {
		return []string{"speed-layer/KJFK"}, nil // shorter than reports: truncation case
	}

	out, err := p.ProcessRegion(context.Background(), 40, -74, 41, -73, uploadBatch)
	require.NoError(t, err)
	require.Len(t, out, 2)

	loc, ok := out[0].Metadata("storage_location")
	require.True(t, ok)
	assert.Equal(t, "speed-layer/KJFK", loc)

	_, ok = out[1].Metadata("storage_location")
	assert.False(t, ok, "second record has no paired key and must be left untagged")
}

func TestShutdownRejectsNewWork(t *testing.T) {
	p := New[*weather.NOAAReport](fetcherFor(map[string]*weather.NOAAReport{"KJFK": validReport("KJFK")}), nil, recordingUpload(map[string]string{}))
	p.Shutdown()
	assert.False(t, p.IsHealthy())

	_, err := p.ProcessStation(context.Background(), "KJFK")
	assert.Error(t, err)
}

var _ ingest.ReportEnvelope = (*weather.NOAAReport)(nil)
