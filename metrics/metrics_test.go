package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersSnapshotIndependence(t *testing.T) {
	var c Counters
	c.IncFetchAttempts()
	c.IncFetchAttempts()
	c.IncFetchSuccesses()
	c.IncUploadSuccesses()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.FetchAttempts)
	assert.Equal(t, int64(1), s.FetchSuccesses)
	assert.Equal(t, int64(1), s.UploadSuccesses)
	assert.Equal(t, 0.5, s.SuccessRate())
}

func TestSnapshotSuccessRateZeroAttempts(t *testing.T) {
	var c Counters
	assert.Equal(t, 0.0, c.Snapshot().SuccessRate())
}

func TestIngestionResultSuccessRate(t *testing.T) {
	r := IngestionResult[string]{
		Successes: map[string]string{"KJFK": "ok", "KLGA": "ok"},
		Failures:  map[string]error{"K1FK": errors.New("bad")},
	}
	assert.InDelta(t, 2.0/3.0, r.SuccessRate(), 0.0001)
}

func TestIngestionResultEmptyIsZero(t *testing.T) {
	r := IngestionResult[string]{}
	assert.Equal(t, 0.0, r.SuccessRate())
}
