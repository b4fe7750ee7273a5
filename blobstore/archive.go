package blobstore

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// rawArchiveRecord is the msgpack-encoded body mirrored alongside the
// verbatim raw-data text object (C8, SPEC_FULL §5): replay tooling reads
// the compact mirror instead of re-parsing the plain-text archive.
type rawArchiveRecord struct {
	Source    string    `msgpack:"source"`
	StationID string    `msgpack:"station_id"`
	Raw       string    `msgpack:"raw"`
	Timestamp time.Time `msgpack:"timestamp"`
}

// ArchiveMirror is an optional capability a BlobStore backend may
// implement: a second write path for the msgpack+zstd raw-archive
// mirror. Backends that don't implement it (the in-memory test double,
// GCS) simply skip the mirror; S3Backend does implement it.
type ArchiveMirror interface {
	PutMirror(ctx context.Context, key string, data []byte) error
}

// RawArchiveMirrorKey derives the mirror object's key from the
// already-derived plain-text raw-data key by swapping its extension.
func RawArchiveMirrorKey(rawKey string) string {
	return strings.TrimSuffix(rawKey, ".txt") + ".msgpack.zst"
}

// marshalRawArchive msgpack-encodes then zstd-compresses a raw-archive
// record, following the teacher's CompressedMETAR level-2 encoding
// (msgpack, then zstd at best-compression) in wx/metar.go.
func marshalRawArchive(source, stationID, raw string, ts time.Time) ([]byte, error) {
	body, err := msgpack.Marshal(rawArchiveRecord{
		Source:    source,
		StationID: stationID,
		Raw:       raw,
		Timestamp: ts,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
