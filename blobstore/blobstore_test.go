package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/mmp/skywx/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedLayerKeyLayout(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC)
	key := SpeedLayerKey("NOAA", "METAR", "KJFK", ts)
	assert.Equal(t, "speed-layer/noaa/metar/2026/07/31/KJFK_20260731_1405.json", key)
}

func TestRawDataKeyLayout(t *testing.T) {
	now := time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC)
	key := RawDataKey("NOAA", "KJFK", now)
	assert.Equal(t, "raw-data/noaa/KJFK_20260731_1405.txt", key)
}

func sampleReport() *weather.NOAAReport {
	n := weather.NewNOAAReport("KJFK", weather.ReportMETAR)
	n.RawText = "METAR KJFK ..."
	n.SetRawData(n.RawText)
	n.Conditions = weather.WeatherConditions{}
	return n
}

func TestUploadWritesDerivedKeyAndMetadata(t *testing.T) {
	mem := NewMemoryBackend()
	u := NewUploader(mem)

	key, err := u.Upload(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Contains(t, key, "speed-layer/noaa/metar/")
	assert.Contains(t, key, "KJFK_")

	data, ok := mem.Get(key)
	require.True(t, ok)
	assert.Contains(t, string(data), `"dataType"`)

	meta := mem.Metadata(key)
	assert.Equal(t, "KJFK", meta["station-id"])
	assert.Equal(t, "NOAA", meta["source"])
	assert.Equal(t, "METAR", meta["report-type"])
}

func TestUploadRejectsNilReport(t *testing.T) {
	u := NewUploader(NewMemoryBackend())
	_, err := u.Upload(context.Background(), nil)
	assert.Error(t, err)
}

func TestUploadBatchCollectsSuccessesAndCounts(t *testing.T) {
	mem := NewMemoryBackend()
	u := NewUploader(mem)

	reports := []*weather.NOAAReport{sampleReport(), sampleReport(), nil}
	keys, err := u.UploadBatch(context.Background(), reports)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestUploadBatchFailsOnlyWhenAllFail(t *testing.T) {
	u := NewUploader(NewMemoryBackend())
	_, err := u.UploadBatch(context.Background(), []*weather.NOAAReport{nil, nil})
	assert.Error(t, err)
}

func TestUploadBatchEmptyInputIsNotAFailure(t *testing.T) {
	u := NewUploader(NewMemoryBackend())
	keys, err := u.UploadBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestUploadRawRejectsEmptyInputs(t *testing.T) {
	u := NewUploader(NewMemoryBackend())
	_, err := u.UploadRaw(context.Background(), "", "KJFK", "text")
	assert.Error(t, err)
	_, err = u.UploadRaw(context.Background(), "NOAA", "", "text")
	assert.Error(t, err)
	_, err = u.UploadRaw(context.Background(), "NOAA", "KJFK", "")
	assert.Error(t, err)
}

func TestUploadRawWritesToRawPrefix(t *testing.T) {
	mem := NewMemoryBackend()
	u := NewUploader(mem)
	key, err := u.UploadRaw(context.Background(), "NOAA", "KJFK", "METAR KJFK ...")
	require.NoError(t, err)
	assert.Contains(t, key, "raw-data/noaa/KJFK_")

	data, ok := mem.Get(key)
	require.True(t, ok)
	assert.Equal(t, "METAR KJFK ...", string(data))
}

func TestHeadBucketProbesLiveness(t *testing.T) {
	mem := NewMemoryBackend()
	u := NewUploader(mem)
	assert.True(t, u.HeadBucket(context.Background()))
	mem.Close()
	assert.False(t, u.HeadBucket(context.Background()))
}
