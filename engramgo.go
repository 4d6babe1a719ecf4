package engramgo

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/engramgo/blobstore"
	"github.com/hupe1980/engramgo/codebook"
	"github.com/hupe1980/engramgo/codec"
	"github.com/hupe1980/engramgo/correction"
	"github.com/hupe1980/engramgo/hierarchy"
	"github.com/hupe1980/engramgo/resource"
	"github.com/hupe1980/engramgo/store"
	"github.com/hupe1980/engramgo/ternary"
)

// Engramgo is an embedded holographic memory engine. All methods are safe
// for concurrent use.
type Engramgo struct {
	mu sync.Mutex

	opts    Options
	codec   *codec.Codec
	book    *codebook.Book
	store   *store.Store
	engine  *hierarchy.Engine
	res     *resource.Controller
	logger  *Logger
	metrics MetricsCollector

	manifest store.Manifest
	meta     map[uint64]store.ContentMeta
	dirty    bool
	closed   bool
}

// Open creates or reopens a database. With the default in-memory blob store
// the database is ephemeral; with a persistent one, previously saved state
// is restored and validated.
func Open(ctx context.Context, optFns ...Option) (*Engramgo, error) {
	o := applyOptions(optFns)

	blobs := o.Blobs
	if blobs == nil {
		blobs = blobstore.NewMemoryStore()
	}
	res := resource.NewController(o.Resources)
	st := store.New(blobs, res)

	e := &Engramgo{
		opts:    o,
		store:   st,
		res:     res,
		logger:  o.Logger,
		metrics: o.Metrics,
		meta:    make(map[uint64]store.ContentMeta),
	}

	if err := e.restore(ctx); err != nil {
		return nil, err
	}

	c, err := codec.New(e.opts.Dimension, e.opts.BlockSize)
	if err != nil {
		return nil, translateError(err)
	}
	e.codec = c

	if e.book == nil {
		book, err := codebook.New(c.Dimension())
		if err != nil {
			return nil, translateError(err)
		}
		e.book = book
	}

	engine, err := hierarchy.NewEngine(st, e.book, o.CacheSize)
	if err != nil {
		return nil, translateError(err)
	}
	e.engine = engine

	return e, nil
}

// restore loads persisted state, if any. A fresh store leaves the database
// empty; geometry from a found manifest overrides the configured one.
func (e *Engramgo) restore(ctx context.Context) error {
	m, err := e.store.LoadManifest(ctx)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	e.manifest = *m
	e.opts.Dimension = m.Dimension
	e.opts.BlockSize = m.BlockSize

	_, book, err := e.store.LoadEngram(ctx)
	if err != nil {
		return err
	}
	e.book = book

	ids, err := e.store.ListContentIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		meta, err := e.store.LoadContentMeta(ctx, id)
		if err != nil {
			return err
		}
		e.meta[id] = meta
	}
	return nil
}

// contentID derives a stable identifier from path and content. The same
// pair always maps to the same id, making re-ingest idempotent.
func contentID(path string, data []byte) uint64 {
	h := sha256.New()
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(path)))
	h.Write(lenBuf[:])
	h.Write([]byte(path))
	h.Write(data)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func (e *Engramgo) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Ingest encodes data under the given path salt, registers the vector in
// the codebook and stores the correction record that makes Extract exact.
// It returns the content id. Ingesting the same path and bytes again is an
// idempotent no-op yielding the same id.
func (e *Engramgo) Ingest(ctx context.Context, path string, data []byte) (uint64, error) {
	start := time.Now()
	id, kind, overhead, err := e.ingest(ctx, path, data)

	e.metrics.RecordIngest(time.Since(start), kind, overhead, err)
	e.logger.LogIngest(ctx, id, len(data), kind.String(), err)
	return id, err
}

func (e *Engramgo) ingest(ctx context.Context, path string, data []byte) (uint64, correction.Kind, int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, 0, 0, err
	}
	if err := e.res.AcquireWorker(ctx); err != nil {
		return 0, 0, 0, err
	}
	defer e.res.ReleaseWorker()

	id := contentID(path, data)

	v, err := e.codec.Encode(data, path)
	if err != nil {
		return id, 0, 0, translateError(err)
	}
	if err := e.book.Put(id, v); err != nil {
		return id, 0, 0, translateError(err)
	}

	decoded, err := e.codec.Decode(v, path, len(data))
	if err != nil {
		return id, 0, 0, translateError(err)
	}
	rec, err := correction.Compute(e.opts.Correction, data, decoded)
	if err != nil {
		return id, 0, 0, translateError(err)
	}

	if err := e.store.SaveCorrection(ctx, id, rec); err != nil {
		return id, rec.Kind, rec.Overhead(), err
	}
	meta := store.ContentMeta{Path: path, Length: len(data)}
	if err := e.store.SaveContentMeta(ctx, id, meta); err != nil {
		return id, rec.Kind, rec.Overhead(), err
	}

	e.mu.Lock()
	if _, known := e.meta[id]; !known {
		e.dirty = true
	}
	e.meta[id] = meta
	e.mu.Unlock()

	return id, rec.Kind, rec.Overhead(), nil
}

// Content is one ingest item for IngestBatch.
type Content struct {
	Path string
	Data []byte
}

// IngestBatch ingests items concurrently, bounded by the resource
// controller's worker limit. The returned ids are positionally aligned with
// items. The first error cancels outstanding work.
func (e *Engramgo) IngestBatch(ctx context.Context, items []Content) ([]uint64, error) {
	ids := make([]uint64, len(items))

	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			id, err := e.Ingest(ctx, item.Path, item.Data)
			ids[i] = id
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Extract returns the bit-exact original bytes for a content id: the
// codebook vector is decoded under the content's path salt and the stored
// correction record is applied on top.
func (e *Engramgo) Extract(ctx context.Context, id uint64) ([]byte, error) {
	start := time.Now()
	data, err := e.extract(ctx, id)

	e.metrics.RecordExtract(time.Since(start), err)
	e.logger.LogExtract(ctx, id, err)
	return data, err
}

func (e *Engramgo) extract(ctx context.Context, id uint64) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	meta, known := e.meta[id]
	e.mu.Unlock()
	if !known || !e.book.IsActive(id) {
		return nil, ErrNotFound
	}

	v, ok := e.book.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	decoded, err := e.codec.Decode(v, meta.Path, meta.Length)
	if err != nil {
		return nil, translateError(err)
	}
	rec, err := e.store.LoadCorrection(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	exact, err := correction.Apply(decoded, rec)
	if err != nil {
		return nil, err
	}
	return exact, nil
}

// Query beam-searches the sub-engram tree for the k content ids most
// similar to query. The result reports skipped branches and spent budget;
// partial results are a defined outcome, not an error.
func (e *Engramgo) Query(ctx context.Context, query ternary.Vector, k int) (*hierarchy.Result, error) {
	start := time.Now()
	res, err := e.query(ctx, query, k)

	found, skipped := 0, 0
	if res != nil {
		found, skipped = len(res.Candidates), len(res.Skipped)
	}
	expansions := 0
	if res != nil {
		expansions = res.Expansions
	}
	e.metrics.RecordQuery(k, time.Since(start), skipped, err)
	e.logger.LogQuery(ctx, k, found, skipped, expansions, err)
	return res, err
}

func (e *Engramgo) query(ctx context.Context, query ternary.Vector, k int) (*hierarchy.Result, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	root, err := e.ensureTree(ctx)
	if err != nil {
		return nil, err
	}

	params := e.opts.Search
	params.K = k

	res, err := e.engine.Search(ctx, root, query, params)
	if err != nil {
		return nil, translateError(err)
	}
	return res, nil
}

// QueryBytes encodes probe under the given path salt and queries with the
// resulting vector. Matching content ingested under the same path scores
// highest; a different path salt decorrelates the probe by design.
func (e *Engramgo) QueryBytes(ctx context.Context, probe []byte, path string, k int) (*hierarchy.Result, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	v, err := e.codec.Encode(probe, path)
	if err != nil {
		return nil, translateError(err)
	}
	return e.Query(ctx, v, k)
}

// Forget removes a content id: the codebook entry is deactivated and the
// correction record and sidecar are deleted. The vector itself is retained
// for engrams that already superpose it; the next flush rebuilds the tree
// without the id.
func (e *Engramgo) Forget(ctx context.Context, id uint64) error {
	err := e.forget(ctx, id)
	e.logger.LogForget(ctx, id, err)
	return err
}

func (e *Engramgo) forget(ctx context.Context, id uint64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if !e.book.IsActive(id) {
		return ErrNotFound
	}

	e.book.Deactivate(id)
	if err := e.store.DeleteCorrection(ctx, id); err != nil {
		return err
	}
	if err := e.store.DeleteContentMeta(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.meta, id)
	e.dirty = true
	e.mu.Unlock()
	return nil
}

// Flush rebuilds the sub-engram tree over the active codebook and persists
// the engram record and manifest. Query calls flush implicitly when state
// is dirty; explicit Flush bounds when the IO happens.
func (e *Engramgo) Flush(ctx context.Context) error {
	start := time.Now()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	err := e.flushLocked(ctx)
	contents := len(e.meta)
	root := uint64(e.manifest.RootNode)
	e.mu.Unlock()

	e.metrics.RecordFlush(time.Since(start), err)
	e.logger.LogFlush(ctx, contents, root, err)
	return err
}

// ensureTree returns the current root, rebuilding the tree first when state
// changed since the last flush.
func (e *Engramgo) ensureTree(ctx context.Context) (hierarchy.NodeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dirty || e.manifest.RootNode == 0 {
		if err := e.flushLocked(ctx); err != nil {
			return 0, err
		}
	}
	return e.manifest.RootNode, nil
}

func (e *Engramgo) flushLocked(ctx context.Context) error {
	// ToArray yields ascending ids, so grouping into leaves is stable
	// across rebuilds of the same content set.
	active := e.book.ActiveIDs().ToArray()

	builder := hierarchy.NewBuilder(e.store, e.book, hierarchy.BuildOptions{
		Fanout:     e.opts.Fanout,
		MaxDensity: e.opts.MaxDensity,
		StartID:    e.manifest.NextNode,
	})
	root, err := builder.Build(ctx, active)
	if err != nil {
		return err
	}

	if err := e.store.SaveEngram(ctx, root.Vector, e.book); err != nil {
		return err
	}

	e.manifest = store.Manifest{
		Dimension:    e.codec.Dimension(),
		BlockSize:    e.codec.BlockSize(),
		RootNode:     root.ID,
		NextNode:     builder.NextID(),
		ContentCount: len(active),
	}
	if err := e.store.SaveManifest(ctx, &e.manifest); err != nil {
		return err
	}

	e.dirty = false
	return nil
}

// Len returns the number of active contents.
func (e *Engramgo) Len() int {
	return e.book.Len()
}

// Dimension returns the database's vector dimension.
func (e *Engramgo) Dimension() int {
	return e.codec.Dimension()
}

// Close flushes dirty state and marks the database closed. Further
// operations return ErrClosed. Close is idempotent.
func (e *Engramgo) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	if e.dirty {
		if err := e.flushLocked(ctx); err != nil {
			return err
		}
	}
	e.closed = true
	return nil
}
