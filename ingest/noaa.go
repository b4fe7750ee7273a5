package ingest

import (
	"context"

	"github.com/mmp/skywx/blobstore"
	"github.com/mmp/skywx/parser"
	"github.com/mmp/skywx/upstream"
	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

// NOAAMETARAdapter builds the SourceAdapter for NOAA METAR ingestion:
// fetch the single station's raw text from the upstream client, then
// hand it to p. An empty upstream result is NO_DATA, not an error.
func NOAAMETARAdapter(client *upstream.Client, p parser.Parser) SourceAdapter[*weather.NOAAReport] {
	return func(ctx context.Context, stationID string) (*weather.NOAAReport, bool, error) {
		records, err := client.FetchReports(ctx, "METAR", stationID)
		if err != nil {
			return nil, false, err
		}
		if len(records) == 0 {
			return nil, false, nil
		}
		rec := records[0]

		result := parser.ParseMETAR(p, rec.StationID, rec.RawData)
		if parseErr, failed := result.Error(); failed {
			return nil, false, wxerrors.Wrap(wxerrors.InvalidData, stationID, parseErr)
		}
		n := result.OrElse(nil)
		if n == nil {
			return nil, false, nil
		}
		n.SetRawData(rec.RawData)
		return n, true, nil
	}
}

// NOAATAFAdapter is the TAF analogue of NOAAMETARAdapter.
func NOAATAFAdapter(client *upstream.Client, p parser.Parser) SourceAdapter[*weather.TAFReport] {
	return func(ctx context.Context, stationID string) (*weather.TAFReport, bool, error) {
		records, err := client.FetchReports(ctx, "TAF", stationID)
		if err != nil {
			return nil, false, err
		}
		if len(records) == 0 {
			return nil, false, nil
		}
		rec := records[0]

		result := parser.ParseTAF(p, rec.StationID, rec.RawData)
		if parseErr, failed := result.Error(); failed {
			return nil, false, wxerrors.Wrap(wxerrors.InvalidData, stationID, parseErr)
		}
		t := result.OrElse(nil)
		if t == nil {
			return nil, false, nil
		}
		t.SetRawData(rec.RawData)
		return t, true, nil
	}
}

// NOAAMETARRegionFetcher builds the speedlayer.RegionFetcher for NOAA
// METAR: a single bounding-box fetch, parsed per-record, skipping any
// record the parser rejects rather than failing the whole region.
func NOAAMETARRegionFetcher(client *upstream.Client, p parser.Parser) func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]*weather.NOAAReport, error) {
	return func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]*weather.NOAAReport, error) {
		records, err := client.FetchByBoundingBox(ctx, minLat, minLon, maxLat, maxLon, "METAR")
		if err != nil {
			return nil, err
		}
		reports := make([]*weather.NOAAReport, 0, len(records))
		for _, rec := range records {
			result := parser.ParseMETAR(p, rec.StationID, rec.RawData)
			n := result.OrElse(nil)
			if n == nil {
				continue
			}
			n.SetRawData(rec.RawData)
			reports = append(reports, n)
		}
		return reports, nil
	}
}

// NOAATAFRegionFetcher is the TAF analogue of NOAAMETARRegionFetcher.
func NOAATAFRegionFetcher(client *upstream.Client, p parser.Parser) func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]*weather.TAFReport, error) {
	return func(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]*weather.TAFReport, error) {
		records, err := client.FetchByBoundingBox(ctx, minLat, minLon, maxLat, maxLon, "TAF")
		if err != nil {
			return nil, err
		}
		reports := make([]*weather.TAFReport, 0, len(records))
		for _, rec := range records {
			result := parser.ParseTAF(p, rec.StationID, rec.RawData)
			t := result.OrElse(nil)
			if t == nil {
				continue
			}
			t.SetRawData(rec.RawData)
			reports = append(reports, t)
		}
		return reports, nil
	}
}

// NewNOAAMETARUploader adapts (*blobstore.Uploader).Upload to the
// Uploader[*weather.NOAAReport] shape the orchestrator expects.
func NewNOAAMETARUploader(u *blobstore.Uploader) Uploader[*weather.NOAAReport] {
	return func(ctx context.Context, report *weather.NOAAReport) (string, error) {
		return u.Upload(ctx, report)
	}
}

// NewNOAATAFUploader is the TAF analogue of NewNOAAMETARUploader.
func NewNOAATAFUploader(u *blobstore.Uploader) Uploader[*weather.TAFReport] {
	return func(ctx context.Context, report *weather.TAFReport) (string, error) {
		return u.UploadTAF(ctx, report)
	}
}
