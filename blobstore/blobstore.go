// Package blobstore is the object-store boundary (C3): key derivation
// per §4.2/§6.2, a BlobStore abstraction over the concrete backend, and
// the Uploader that serializes reports and puts them at the derived key.
package blobstore

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mmp/skywx/log"
	"github.com/mmp/skywx/util"
	"github.com/mmp/skywx/weather"
	"github.com/mmp/skywx/wxerrors"
)

// BlobStore is the minimal object-store contract every backend
// implements. Put is content-addressed by key, not append/patch; Close
// releases any client-level resources the backend holds (HTTP
// connections, credentials).
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	HeadBucket(ctx context.Context) bool
	Close() error
}

// SpeedLayerKey derives the canonical speed-layer key (§4.2): the date
// partition and timestamp are both taken from ingestionTime in UTC;
// source and reportType are lowercased.
func SpeedLayerKey(source, reportType, stationID string, ingestionTime time.Time) string {
	t := ingestionTime.UTC()
	return fmt.Sprintf("speed-layer/%s/%s/%04d/%02d/%02d/%s_%s.json",
		strings.ToLower(source), strings.ToLower(reportType),
		t.Year(), t.Month(), t.Day(),
		stationID, t.Format("20060102_1504"))
}

// RawDataKey derives the raw-archive key (§4.2): the timestamp is taken
// from the current UTC wall clock at upload time, not ingestionTime.
func RawDataKey(source, stationID string, now time.Time) string {
	return fmt.Sprintf("raw-data/%s/%s_%s.txt", strings.ToLower(source), stationID, now.UTC().Format("20060102_1504"))
}

// Uploader is C3: it owns a BlobStore backend and implements
// upload/uploadBatch/uploadRaw/headBucket over it.
type Uploader struct {
	store      BlobStore
	lg         *log.Logger
	bytesTotal atomic.Int64
}

// NewUploader wraps a BlobStore backend.
func NewUploader(store BlobStore) *Uploader {
	return &Uploader{store: store}
}

// WithLogger attaches a logger used for best-effort failures (currently
// just the raw-archive mirror write); nil is fine.
func (u *Uploader) WithLogger(lg *log.Logger) *Uploader {
	u.lg = lg
	return u
}

// Upload serializes report as JSON (§6.2), puts it at the derived
// speed-layer key with the documented object metadata, and returns the
// key. A nil report is rejected with InvalidData (standing in for the
// spec's InvalidInput, folded into this taxonomy's closest kind since
// this implementation does not define a separate InvalidInput).
func (u *Uploader) Upload(ctx context.Context, report *weather.NOAAReport) (string, error) {
	if report == nil {
		return "", wxerrors.New(wxerrors.InvalidData, "")
	}

	data, err := weather.MarshalReport(report)
	if err != nil {
		return "", wxerrors.Wrap(wxerrors.StorageError, report.StationID(), err)
	}

	key := SpeedLayerKey(report.Source().String(), report.ReportType.String(), report.StationID(), report.IngestionTime())
	meta := map[string]string{
		"source":         report.Source().String(),
		"station-id":     report.StationID(),
		"report-type":    report.ReportType.String(),
		"ingestion-time": report.IngestionTime().UTC().Format(time.RFC3339),
	}

	if err := u.store.Put(ctx, key, data, "application/json", meta); err != nil {
		return "", wxerrors.Wrap(wxerrors.StorageError, report.StationID(), err)
	}
	u.bytesTotal.Add(int64(len(data)))
	return key, nil
}

// UploadTAF is the TAF analogue of Upload; TAFReport embeds *NOAAReport
// but needs its own marshaler (MarshalTAFReport) for the extra forecast
// fields.
func (u *Uploader) UploadTAF(ctx context.Context, report *weather.TAFReport) (string, error) {
	if report == nil {
		return "", wxerrors.New(wxerrors.InvalidData, "")
	}

	data, err := weather.MarshalTAFReport(report)
	if err != nil {
		return "", wxerrors.Wrap(wxerrors.StorageError, report.StationID(), err)
	}

	key := SpeedLayerKey(report.Source().String(), report.ReportType.String(), report.StationID(), report.IngestionTime())
	meta := map[string]string{
		"source":         report.Source().String(),
		"station-id":     report.StationID(),
		"report-type":    report.ReportType.String(),
		"ingestion-time": report.IngestionTime().UTC().Format(time.RFC3339),
	}

	if err := u.store.Put(ctx, key, data, "application/json", meta); err != nil {
		return "", wxerrors.Wrap(wxerrors.StorageError, report.StationID(), err)
	}
	u.bytesTotal.Add(int64(len(data)))
	return key, nil
}

// UploadBatch uploads each report independently (§4.2): it collects the
// keys of every success, logs and counts failures without aborting, and
// fails the call only when every upload in a non-empty batch failed.
func (u *Uploader) UploadBatch(ctx context.Context, reports []*weather.NOAAReport) ([]string, error) {
	if len(reports) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(reports))
	failures := 0
	for _, r := range reports {
		key, err := u.Upload(ctx, r)
		if err != nil {
			failures++
			continue
		}
		keys = append(keys, key)
	}

	if failures == len(reports) {
		return nil, wxerrors.New(wxerrors.StorageError, "")
	}
	return keys, nil
}

// UploadTAFBatch is the TAF analogue of UploadBatch.
func (u *Uploader) UploadTAFBatch(ctx context.Context, reports []*weather.TAFReport) ([]string, error) {
	if len(reports) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(reports))
	failures := 0
	for _, r := range reports {
		key, err := u.UploadTAF(ctx, r)
		if err != nil {
			failures++
			continue
		}
		keys = append(keys, key)
	}

	if failures == len(reports) {
		return nil, wxerrors.New(wxerrors.StorageError, "")
	}
	return keys, nil
}

// UploadRaw uploads the verbatim upstream text to the raw-data prefix
// (§4.2). Empty source/stationID/raw are rejected with InvalidData.
func (u *Uploader) UploadRaw(ctx context.Context, source, stationID, raw string) (string, error) {
	if source == "" || stationID == "" || raw == "" {
		return "", wxerrors.New(wxerrors.InvalidData, stationID)
	}

	now := time.Now()
	key := RawDataKey(source, stationID, now)
	meta := map[string]string{"source": source, "station-id": stationID}
	if err := u.store.Put(ctx, key, []byte(raw), "text/plain", meta); err != nil {
		return "", wxerrors.Wrap(wxerrors.StorageError, stationID, err)
	}
	u.bytesTotal.Add(int64(len(raw)))

	if mirror, ok := u.store.(ArchiveMirror); ok {
		if body, err := marshalRawArchive(source, stationID, raw, now.UTC()); err != nil {
			u.lg.Warnf("%s: archive mirror encode failed: %v", stationID, err)
		} else if err := mirror.PutMirror(ctx, RawArchiveMirrorKey(key), body); err != nil {
			u.lg.Warnf("%s: archive mirror upload failed: %v", stationID, err)
		}
	}
	return key, nil
}

// HeadBucket probes backend liveness without raising.
func (u *Uploader) HeadBucket(ctx context.Context) bool {
	return u.store.HeadBucket(ctx)
}

// BytesUploaded returns the cumulative size of every speed-layer payload
// and raw-data text object this Uploader has successfully written (the
// archive mirror is not counted), for operator log lines (e.g.
// util.ByteCount(u.BytesUploaded()) at the end of a batch run).
func (u *Uploader) BytesUploaded() util.ByteCount {
	return util.ByteCount(u.bytesTotal.Load())
}
