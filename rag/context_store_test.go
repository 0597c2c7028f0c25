package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/store"
)

type stubSource struct {
	records []core.Record
	err     error
	delay   time.Duration
	calls   atomic.Int32
	limit   atomic.Int32
}

func (s *stubSource) FetchRecords(_ context.Context, limit int) ([]core.Record, error) {
	s.calls.Add(1)
	s.limit.Store(int32(limit))
	time.Sleep(s.delay)
	return s.records, s.err
}

func churnRecords() []core.Record {
	return []core.Record{
		{ID: "7590-VHVEG", Fields: []core.RecordField{{Name: "contract", Value: "Month-to-month"}, {Name: "paymentmethod", Value: "Electronic check"}}},
		{ID: "3668-QPYBK", Fields: []core.RecordField{{Name: "contract", Value: "Month-to-month"}, {Name: "paymentmethod", Value: "Mailed check"}}},
		{ID: "9237-HQITU", Fields: []core.RecordField{{Name: "contract", Value: "Two year"}, {Name: "paymentmethod", Value: "Bank transfer"}}},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestContextStore_BackfillOnce(t *testing.T) {
	src := &stubSource{records: churnRecords()}
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_backfills_total"})
	s := NewContextStore(store.NewMemoryIndex(NewHashEmbedder(64)), src,
		WithLogger(quietLogger()), WithBackfillCounter(counter))

	ctx := context.Background()
	first, err := s.Query(ctx, "month-to-month electronic check", 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Query() = %v, want 2 documents", first)
	}
	if first[0] != "Month-to-month Electronic check" {
		t.Errorf("best match = %q", first[0])
	}
	if _, err := s.Query(ctx, "two year", 1); err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if s.Backfills() != 1 || src.calls.Load() != 1 {
		t.Errorf("backfills = %d, source calls = %d; want 1, 1", s.Backfills(), src.calls.Load())
	}
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Errorf("backfill counter = %v, want 1", got)
	}
	if src.limit.Load() != DefaultBackfillLimit {
		t.Errorf("limit = %d, want %d", src.limit.Load(), DefaultBackfillLimit)
	}
}

func TestContextStore_ConcurrentFirstQueries(t *testing.T) {
	src := &stubSource{records: churnRecords(), delay: 20 * time.Millisecond}
	s := NewContextStore(store.NewMemoryIndex(NewHashEmbedder(64)), src,
		WithLogger(quietLogger()), WithBackfillLimit(10))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Query(context.Background(), "month-to-month", 3); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Query() error = %v", err)
	}
	if src.calls.Load() != 1 {
		t.Errorf("source calls = %d, want exactly 1 backfill", src.calls.Load())
	}
	if src.limit.Load() != 10 {
		t.Errorf("limit = %d, want 10", src.limit.Load())
	}
}

func TestContextStore_EmptySource(t *testing.T) {
	src := &stubSource{}
	s := NewContextStore(store.NewMemoryIndex(NewHashEmbedder(64)), src, WithLogger(quietLogger()))
	got, err := s.Query(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Query() = %#v, want empty non-nil slice", got)
	}
}

func TestContextStore_UpstreamFailure(t *testing.T) {
	upstream := core.WrapDomainError(core.ModuleStore, core.ErrorCodeUpstreamFailure, "query records", errors.New("connection refused"))
	s := NewContextStore(store.NewMemoryIndex(NewHashEmbedder(64)), &stubSource{err: upstream}, WithLogger(quietLogger()))
	_, err := s.Query(context.Background(), "anything", 3)
	if err != upstream {
		t.Errorf("Query() error = %v, want the source error unchanged", err)
	}
}

func TestContextStore_NegativeTopK(t *testing.T) {
	s := NewContextStore(store.NewMemoryIndex(NewHashEmbedder(64)), nil)
	if _, err := s.Query(context.Background(), "x", -1); !core.IsInvalidInput(err) {
		t.Errorf("Query() error = %v, want INVALID_INPUT", err)
	}
}

func TestContextStore_BackfillAgainAfterIndexEmptied(t *testing.T) {
	src := &stubSource{records: churnRecords()}
	index := store.NewMemoryIndex(NewHashEmbedder(64))
	s := NewContextStore(index, src, WithLogger(quietLogger()))

	ctx := context.Background()
	if _, err := s.Query(ctx, "month-to-month", 1); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if _, err := s.Query(ctx, "two year", 1); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if s.Backfills() != 1 || src.calls.Load() != 1 {
		t.Fatalf("backfills = %d, source calls = %d; want 1, 1", s.Backfills(), src.calls.Load())
	}

	index.Reset()
	docs, err := s.Query(ctx, "month-to-month electronic check", 1)
	if err != nil {
		t.Fatalf("Query() after reset error = %v", err)
	}
	if len(docs) != 1 || docs[0] != "Month-to-month Electronic check" {
		t.Errorf("Query() after reset = %v", docs)
	}
	if s.Backfills() != 2 || src.calls.Load() != 2 {
		t.Errorf("backfills = %d, source calls = %d; want 2, 2", s.Backfills(), src.calls.Load())
	}
	if index.Len() != len(churnRecords()) {
		t.Errorf("index size = %d, want %d", index.Len(), len(churnRecords()))
	}
}
