// Package upstream is the HTTP client boundary (C2): a single stateless
// HTTPS GET per call against the upstream aviation weather API, with
// station-code validation and the §6.1 URL/response contract.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

const userAgent = "skywx-ingest/1"

// RawRecord is one element of the upstream JSON array response — the
// per-station raw payload before the Parser collaborator (§6.3) turns it
// into a typed report. The upstream API is not specified field-by-field
// beyond §6.1/S1, so this mirrors the literal shape the scenarios use:
// reportType/stationId/rawData. Any other fields in the body are not
// decoded and are dropped.
type RawRecord struct {
	ReportType string `json:"reportType"`
	StationID  string `json:"stationId"`
	RawData    string `json:"rawData"`
}

// Client is a stateless-except-for-its-HTTP-session upstream fetcher.
// The zero value is not usable; construct with New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// New constructs a Client against baseURL (e.g.
// "https://aviationweather.gov/api/data") with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// FetchReports fetches the latest reports of reportType for the given
// station ids. Every id must be a 3-4 ASCII-letter code (case
// insensitive); the first invalid id fails the whole call with
// InvalidStationCode, and no HTTP request is made (§4.1, S2).
func (c *Client) FetchReports(ctx context.Context, reportType string, stationIDs ...string) ([]RawRecord, error) {
	normalized := make([]string, len(stationIDs))
	for i, id := range stationIDs {
		if !weather.ValidateStationCode(id) {
			return nil, wxerrors.New(wxerrors.InvalidStationCode, id)
		}
		normalized[i] = strings.ToUpper(id)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(normalized, ","))
	return c.get(ctx, reportType, q)
}

// FetchByBoundingBox fetches reportType reports for every station inside
// the box. An empty result from upstream is a valid empty list, not a
// failure (§4.1).
func (c *Client) FetchByBoundingBox(ctx context.Context, minLat, minLon, maxLat, maxLon float64, reportType string) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%s,%s,%s,%s",
		strconv.FormatFloat(minLat, 'f', -1, 64),
		strconv.FormatFloat(minLon, 'f', -1, 64),
		strconv.FormatFloat(maxLat, 'f', -1, 64),
		strconv.FormatFloat(maxLon, 'f', -1, 64)))
	return c.get(ctx, reportType, q)
}

func (c *Client) get(ctx context.Context, reportType string, q url.Values) ([]RawRecord, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, strings.ToLower(reportType), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, wxerrors.Wrap(wxerrors.NetworkError, "", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ne net.Error
		if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, wxerrors.Wrap(wxerrors.Timeout, "", err)
		}
		return nil, wxerrors.Wrap(wxerrors.NetworkError, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		var ne net.Error
		if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, wxerrors.Wrap(wxerrors.Timeout, "", err)
		}
		return nil, wxerrors.Wrap(wxerrors.NetworkError, "", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &wxerrors.Error{
			Kind:       wxerrors.NetworkError,
			Message:    fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, reqURL),
			StatusCode: resp.StatusCode,
		}
	}

	var records []RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, wxerrors.Wrap(wxerrors.NetworkError, "", err)
	}
	return records, nil
}
