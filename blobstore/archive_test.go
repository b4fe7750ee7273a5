package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestRawArchiveMirrorKey(t *testing.T) {
	require.Equal(t, "raw-data/noaa/KJFK_20260731_1405.msgpack.zst",
		RawArchiveMirrorKey("raw-data/noaa/KJFK_20260731_1405.txt"))
}

func TestMarshalRawArchiveRoundTrips(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC)
	body, err := marshalRawArchive("NOAA", "KJFK", "METAR KJFK ...", ts)
	require.NoError(t, err)

	zr, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer zr.Close()
	plain, err := zr.DecodeAll(body, nil)
	require.NoError(t, err)

	var rec rawArchiveRecord
	require.NoError(t, msgpack.Unmarshal(plain, &rec))
	require.Equal(t, "NOAA", rec.Source)
	require.Equal(t, "KJFK", rec.StationID)
	require.Equal(t, "METAR KJFK ...", rec.Raw)
	require.True(t, ts.Equal(rec.Timestamp))
}

// memoryMirror is a test double satisfying both BlobStore and
// ArchiveMirror so UploadRaw's mirror write path can be exercised
// without a real S3 client.
type memoryMirror struct {
	*MemoryBackend
	mirrors map[string][]byte
}

func newMemoryMirror() *memoryMirror {
	return &memoryMirror{MemoryBackend: NewMemoryBackend(), mirrors: make(map[string][]byte)}
}

func (m *memoryMirror) PutMirror(ctx context.Context, key string, data []byte) error {
	m.mirrors[key] = data
	return nil
}

func TestUploadRawWritesArchiveMirrorWhenBackendSupportsIt(t *testing.T) {
	mem := newMemoryMirror()
	u := NewUploader(mem)

	key, err := u.UploadRaw(context.Background(), "NOAA", "KJFK", "METAR KJFK ...")
	require.NoError(t, err)

	mirrorKey := RawArchiveMirrorKey(key)
	body, ok := mem.mirrors[mirrorKey]
	require.True(t, ok)
	require.NotEmpty(t, body)
}
