// Package engramgo is an embedded holographic memory engine: content is
// encoded into sparse ternary vectors, superposed into engrams, and
// recovered bit-exact through a diff-and-patch correction layer.
//
// The engine combines three layers:
//
//   - A deterministic, path-salted codec that maps byte blocks to sparse
//     ternary vectors. Encoding is compositional (vectors can be bundled,
//     bound and compared), decoding is approximate by construction.
//   - A correction layer that records the minimal patch between original
//     bytes and their decoded approximation, making extraction exact while
//     keeping the vector algebra intact.
//   - A sub-engram hierarchy over the codebook that answers similarity
//     queries with a bounded beam search, degrading gracefully when
//     branches are unavailable.
//
// # Quick start
//
//	ctx := context.Background()
//	db, err := engramgo.Open(ctx)
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close(ctx)
//
//	id, err := db.Ingest(ctx, "docs/readme.txt", []byte("hello engrams!"))
//	if err != nil {
//	    panic(err)
//	}
//
//	exact, err := db.Extract(ctx, id) // bit-exact original bytes
//
//	res, err := db.QueryBytes(ctx, []byte("hello"), "docs/readme.txt", 5)
//	for _, c := range res.Candidates {
//	    fmt.Println(c.ID, c.Similarity)
//	}
//
// # Persistence
//
// By default everything lives in memory. Pass a blob store to persist across
// opens:
//
//	blobs, _ := blobstore.NewLocalStore("./data")
//	db, err := engramgo.Open(ctx, engramgo.WithBlobStore(blobs))
//
// The same option accepts the MinIO and S3 backed stores from
// blobstore/minio and blobstore/s3.
package engramgo
