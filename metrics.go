package engramgo

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/engramgo/correction"
)

// MetricsCollector receives operational measurements. Implement it to feed a
// monitoring system; correction overhead in particular is a measured
// property worth watching, since high-entropy content degrades to verbatim
// storage by design of the selection rules.
type MetricsCollector interface {
	// RecordIngest is called after each ingest with the selected correction
	// kind and its storage overhead in bytes.
	RecordIngest(duration time.Duration, kind correction.Kind, overhead int, err error)

	// RecordExtract is called after each extraction.
	RecordExtract(duration time.Duration, err error)

	// RecordQuery is called after each query. skipped is the number of
	// branches that were unavailable.
	RecordQuery(k int, duration time.Duration, skipped int, err error)

	// RecordFlush is called after each tree rebuild.
	RecordFlush(duration time.Duration, err error)
}

// NoopMetricsCollector discards all measurements.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(time.Duration, correction.Kind, int, error) {}
func (NoopMetricsCollector) RecordExtract(time.Duration, error)                      {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, int, error)              {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)                        {}

// BasicMetricsCollector keeps in-memory atomic counters. Useful for tests
// and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IngestCount  atomic.Int64
	IngestErrors atomic.Int64

	CorrectionExact        atomic.Int64
	CorrectionBitPatch     atomic.Int64
	CorrectionBlockReplace atomic.Int64
	CorrectionVerbatim     atomic.Int64
	CorrectionOverhead     atomic.Int64

	ExtractCount  atomic.Int64
	ExtractErrors atomic.Int64

	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryPartial    atomic.Int64
	QueryTotalNanos atomic.Int64

	FlushCount  atomic.Int64
	FlushErrors atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(_ time.Duration, kind correction.Kind, overhead int, err error) {
	b.IngestCount.Add(1)
	if err != nil {
		b.IngestErrors.Add(1)
		return
	}

	switch kind {
	case correction.KindExact:
		b.CorrectionExact.Add(1)
	case correction.KindBitPatch:
		b.CorrectionBitPatch.Add(1)
	case correction.KindBlockReplace:
		b.CorrectionBlockReplace.Add(1)
	case correction.KindVerbatim:
		b.CorrectionVerbatim.Add(1)
	}
	b.CorrectionOverhead.Add(int64(overhead))
}

// RecordExtract implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExtract(_ time.Duration, err error) {
	b.ExtractCount.Add(1)
	if err != nil {
		b.ExtractErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ int, duration time.Duration, skipped int, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
	if skipped > 0 {
		b.QueryPartial.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(_ time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// Stats is a point-in-time snapshot of BasicMetricsCollector.
type Stats struct {
	IngestCount  int64
	IngestErrors int64

	CorrectionExact        int64
	CorrectionBitPatch     int64
	CorrectionBlockReplace int64
	CorrectionVerbatim     int64
	CorrectionOverhead     int64

	ExtractCount  int64
	ExtractErrors int64

	QueryCount    int64
	QueryErrors   int64
	QueryPartial  int64
	QueryAvgNanos int64

	FlushCount  int64
	FlushErrors int64
}

// GetStats returns a snapshot of current counters.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		IngestCount:            b.IngestCount.Load(),
		IngestErrors:           b.IngestErrors.Load(),
		CorrectionExact:        b.CorrectionExact.Load(),
		CorrectionBitPatch:     b.CorrectionBitPatch.Load(),
		CorrectionBlockReplace: b.CorrectionBlockReplace.Load(),
		CorrectionVerbatim:     b.CorrectionVerbatim.Load(),
		CorrectionOverhead:     b.CorrectionOverhead.Load(),
		ExtractCount:           b.ExtractCount.Load(),
		ExtractErrors:          b.ExtractErrors.Load(),
		QueryCount:             b.QueryCount.Load(),
		QueryErrors:            b.QueryErrors.Load(),
		QueryPartial:           b.QueryPartial.Load(),
		FlushCount:             b.FlushCount.Load(),
		FlushErrors:            b.FlushErrors.Load(),
	}
	if s.QueryCount > 0 {
		s.QueryAvgNanos = b.QueryTotalNanos.Load() / s.QueryCount
	}
	return s
}
