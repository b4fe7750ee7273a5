package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmp/skywx/wxerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReportsInvalidStationCodeNoRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.FetchReports(context.Background(), "METAR", "K1FK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.InvalidStationCode))
	assert.False(t, called, "an invalid station code must short-circuit before any HTTP request")
}

func TestFetchReportsHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "KJFK", r.URL.Query().Get("ids"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"reportType":"METAR","stationId":"KJFK","rawData":"METAR KJFK ..."}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	records, err := c.FetchReports(context.Background(), "METAR", "kjfk")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "KJFK", records[0].StationID)
}

func TestFetchReportsEmptyResultIsNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	records, err := c.FetchReports(context.Background(), "METAR", "KZZZ")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchReportsNon200MapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.FetchReports(context.Background(), "METAR", "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.NetworkError))
	wxErr, ok := wxerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, wxErr.StatusCode)
}

func TestFetchReportsTimeoutMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Millisecond)
	_, err := c.FetchReports(context.Background(), "METAR", "KJFK")
	require.Error(t, err)
	assert.True(t, wxerrors.IsKind(err, wxerrors.Timeout))
}

func TestFetchByBoundingBoxBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40,-74,41,-73", r.URL.Query().Get("bbox"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.FetchByBoundingBox(context.Background(), 40, -74, 41, -73, "METAR")
	require.NoError(t, err)
}
