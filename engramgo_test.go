package engramgo

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/engramgo/blobstore"
)

func TestIngestExtractSmallText(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	db, err := Open(ctx, WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer db.Close(ctx)

	original := []byte("hello engrams!")
	id, err := db.Ingest(ctx, "docs/hello.txt", original)
	require.NoError(t, err)

	got, err := db.Extract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, original, got, "extraction must be bit-exact")

	// Dense short text self-interferes under the codec, so the decode is
	// approximate and a sparse patch is recorded for it.
	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.CorrectionBitPatch)
	assert.Positive(t, stats.CorrectionOverhead)
}

func TestIngestExtractHighEntropy(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	db, err := Open(ctx, WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer db.Close(ctx)

	rng := rand.New(rand.NewSource(42))
	original := make([]byte, 4096)
	_, err = rng.Read(original)
	require.NoError(t, err)

	id, err := db.Ingest(ctx, "blobs/noise.bin", original)
	require.NoError(t, err)

	got, err := db.Extract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// High-entropy content degrades to verbatim storage; that is a
	// measured property, not a failure.
	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.CorrectionVerbatim)
}

func TestIngestEmpty(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	id, err := db.Ingest(ctx, "empty", nil)
	require.NoError(t, err)

	got, err := db.Extract(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIngestIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	data := []byte("same bytes, same path")
	id1, err := db.Ingest(ctx, "a.txt", data)
	require.NoError(t, err)
	id2, err := db.Ingest(ctx, "a.txt", data)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, db.Len())
}

func TestPathSaltSeparatesIdenticalContent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	data := []byte("identical payload")
	id1, err := db.Ingest(ctx, "one.txt", data)
	require.NoError(t, err)
	id2, err := db.Ingest(ctx, "two.txt", data)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "different paths must yield different ids")
	assert.Equal(t, 2, db.Len())

	for _, id := range []uint64{id1, id2} {
		got, err := db.Extract(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestIngestBatch(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	items := make([]Content, 50)
	for i := range items {
		items[i] = Content{
			Path: fmt.Sprintf("batch/%d.txt", i),
			Data: fmt.Appendf(nil, "document number %d with some body text", i),
		}
	}

	ids, err := db.IngestBatch(ctx, items)
	require.NoError(t, err)
	require.Len(t, ids, len(items))
	assert.Equal(t, len(items), db.Len())

	for i, id := range ids {
		got, err := db.Extract(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, items[i].Data, got)
	}
}

func TestQueryFindsIngestedContent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	ids := make([]uint64, 0, 20)
	for i := range 20 {
		path := fmt.Sprintf("corpus/%d.txt", i)
		data := fmt.Appendf(nil, "entry %d: some unique prose about topic %d", i, i*31)
		id, err := db.Ingest(ctx, path, data)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	target := 7
	probe := fmt.Appendf(nil, "entry %d: some unique prose about topic %d", target, target*31)
	res, err := db.QueryBytes(ctx, probe, fmt.Sprintf("corpus/%d.txt", target), 3)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	assert.Equal(t, ids[target], res.Candidates[0].ID)
	assert.InDelta(t, 1.0, res.Candidates[0].Similarity, 1e-9,
		"exact probe under the same path salt reranks to cosine 1")
}

func TestQueryInvalidK(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	_, err = db.QueryBytes(ctx, []byte("probe"), "p", 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestQueryEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	res, err := db.QueryBytes(ctx, []byte("anything"), "p", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
}

func TestExtractUnknown(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	_, err = db.Extract(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	keep, err := db.Ingest(ctx, "keep.txt", []byte("kept content"))
	require.NoError(t, err)
	drop, err := db.Ingest(ctx, "drop.txt", []byte("dropped content"))
	require.NoError(t, err)

	require.NoError(t, db.Forget(ctx, drop))
	assert.Equal(t, 1, db.Len())

	_, err = db.Extract(ctx, drop)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.Forget(ctx, drop), ErrNotFound)

	res, err := db.QueryBytes(ctx, []byte("dropped content"), "drop.txt", 5)
	require.NoError(t, err)
	for _, c := range res.Candidates {
		assert.NotEqual(t, drop, c.ID, "forgotten content must not surface")
	}

	got, err := db.Extract(ctx, keep)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept content"), got)
}

func TestReopenFromBlobStore(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithBlobStore(blobs))
	require.NoError(t, err)

	original := []byte("state that must survive reopen")
	id, err := db.Ingest(ctx, "persisted.txt", original)
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	reopened, err := Open(ctx, WithBlobStore(blobs))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	assert.Equal(t, 1, reopened.Len())
	got, err := reopened.Extract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	res, err := reopened.QueryBytes(ctx, original, "persisted.txt", 1)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, id, res.Candidates[0].ID)
}

func TestReopenLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	blobs, err := blobstore.NewLocalStore(dir)
	require.NoError(t, err)

	db, err := Open(ctx, WithBlobStore(blobs))
	require.NoError(t, err)

	id, err := db.Ingest(ctx, "file.bin", []byte{0x00, 0xFF, 0x80, 0x7F})
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	blobs2, err := blobstore.NewLocalStore(dir)
	require.NoError(t, err)
	reopened, err := Open(ctx, WithBlobStore(blobs2))
	require.NoError(t, err)
	defer reopened.Close(ctx)

	got, err := reopened.Extract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF, 0x80, 0x7F}, got)
}

func TestClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx), "close is idempotent")

	_, err = db.Ingest(ctx, "late.txt", []byte("too late"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.Extract(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.QueryBytes(ctx, []byte("q"), "p", 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, db.Flush(ctx), ErrClosed)
	assert.ErrorIs(t, db.Forget(ctx, 1), ErrClosed)
}

func TestRoundTripInputs(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "AllZero", data: make([]byte, 512)},
		{name: "All0xFF", data: func() []byte {
			b := make([]byte, 512)
			for i := range b {
				b[i] = 0xFF
			}
			return b
		}()},
		{name: "SingleByte", data: []byte{0x42}},
		{name: "BlockBoundary", data: make([]byte, 256)},
		{name: "OverOneBlock", data: []byte(fmt.Sprintf("%0300d", 7))},
	}

	ctx := context.Background()
	db, err := Open(ctx)
	require.NoError(t, err)
	defer db.Close(ctx)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := db.Ingest(ctx, "roundtrip/"+tc.name, tc.data)
			require.NoError(t, err)

			got, err := db.Extract(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tc.data, got)
		})
	}
}

func TestDimensionOption(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, WithDimension(4096))
	require.NoError(t, err)
	defer db.Close(ctx)

	assert.Equal(t, 4096, db.Dimension())

	id, err := db.Ingest(ctx, "small-dim.txt", []byte("works at any admissible dimension"))
	require.NoError(t, err)
	got, err := db.Extract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("works at any admissible dimension"), got)
}
