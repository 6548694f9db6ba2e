package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/services/shape"
)

type fakeInventory struct {
	mu     sync.Mutex
	raw    domain.RawSample
	err    error
	calls  int
	groups []string
}

func (f *fakeInventory) Collect(_ context.Context, groups []string) (domain.RawSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.groups = append([]string(nil), groups...)
	return f.raw, f.err
}

func (f *fakeInventory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWriter struct {
	mu          sync.Mutex
	batches     [][]domain.Point
	block       chan struct{} // when non-nil, EnqueueBatch blocks until closed
	closed      bool
	afterClosed int // batches that arrived after Close
}

func (w *fakeWriter) Enqueue(p domain.Point) error {
	w.EnqueueBatch([]domain.Point{p})
	return nil
}

func (w *fakeWriter) EnqueueBatch(ps []domain.Point) {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	if w.closed {
		w.afterClosed++
	}
	w.batches = append(w.batches, append([]domain.Point(nil), ps...))
	w.mu.Unlock()
}

func (w *fakeWriter) Close() bool {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return true
}

func (w *fakeWriter) batchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

func tickSample() domain.RawSample {
	return domain.RawSample{
		domain.GroupLoad:   map[string]any{"avg": 0.5, "cpu_percent": 20.0},
		domain.GroupMemory: map[string]any{"total": float64(4_000_000_000)},
		domain.GroupFilesystems: []map[string]any{
			{"name": "/dev/sda1", "mount": "/", "use_percent": 10.0},
			{"name": "/dev/sdb1", "mount": "/data", "use_percent": 20.0},
		},
		domain.GroupGraphics: []map[string]any{
			{"vendor": "Acme GPU", "index": float64(0)},
			{"vendor": "VendorX Pro", "index": float64(1)},
		},
	}
}

func TestTick_BatchSizingAndSharedTimestamp(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{raw: tickSample()}
	w := &fakeWriter{}
	s := New(inv, shape.New("VendorX"), w, time.Second, zap.NewNop())

	s.Tick(context.Background())

	if got := w.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}
	batch := w.batches[0]
	// 1 system + 1 matching graphics + 2 filesystems.
	if len(batch) != 4 {
		t.Fatalf("points = %d, want 4", len(batch))
	}

	counts := map[string]int{}
	ts := batch[0].Timestamp
	for _, p := range batch {
		counts[p.Measurement]++
		if !p.Timestamp.Equal(ts) {
			t.Errorf("point %q timestamp %v differs from %v", p.Measurement, p.Timestamp, ts)
		}
	}
	if counts[MeasurementSystem] != 1 || counts[MeasurementGraphics] != 1 || counts[MeasurementFilesystem] != 2 {
		t.Errorf("measurement counts = %v", counts)
	}
}

func TestTick_RequestsDefaultGroups(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{raw: tickSample()}
	s := New(inv, shape.New(""), &fakeWriter{}, time.Second, zap.NewNop())

	s.Tick(context.Background())

	if len(inv.groups) != len(domain.DefaultGroups) {
		t.Fatalf("groups = %v, want %v", inv.groups, domain.DefaultGroups)
	}
}

func TestTick_DegradesOnInventoryError(t *testing.T) {
	t.Parallel()

	partial := domain.RawSample{
		domain.GroupMemory: map[string]any{"total": float64(1_000_000_000)},
	}
	inv := &fakeInventory{raw: partial, err: errors.New("graphics: no such device")}
	w := &fakeWriter{}
	s := New(inv, shape.New(""), w, time.Second, zap.NewNop())

	s.Tick(context.Background())

	if got := w.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1 (degraded tick still enqueues)", got)
	}
	batch := w.batches[0]
	if len(batch) != 1 || batch[0].Measurement != MeasurementSystem {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if batch[0].Fields["mem_total_mb"] != 1000 {
		t.Errorf("mem_total_mb = %v, want 1000", batch[0].Fields["mem_total_mb"])
	}
}

func TestBuildPoints_EmptyShaped(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0)
	points := BuildPoints(domain.Shaped{}, ts)
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1 (system point always built)", len(points))
	}
	if points[0].Measurement != MeasurementSystem || !points[0].Timestamp.Equal(ts) {
		t.Errorf("unexpected system point: %+v", points[0])
	}
}

func TestRun_SkipsTickWhileBusy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	inv := &fakeInventory{raw: tickSample()}
	w := &fakeWriter{block: release}
	s := New(inv, shape.New(""), w, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	// First tick blocks inside the writer; later intervals must be skipped,
	// not run concurrently.
	deadline := time.After(2 * time.Second)
	for {
		if st := s.Stats(); st.Skipped >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no skipped ticks observed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := w.batchCount(); got != 0 {
		t.Fatalf("batches flushed while first tick blocked: %d", got)
	}

	cancel()
	close(release)
	<-done

	// Run waited for the unblocked tick before returning.
	if got := s.Stats().Ticks; got != 1 {
		t.Fatalf("completed ticks = %d, want 1", got)
	}
	if st := s.Stats(); st.Skipped < 2 {
		t.Errorf("skipped = %d, want >= 2", st.Skipped)
	}
}

func TestRun_WaitsForInFlightTickOnCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	inv := &fakeInventory{raw: tickSample()}
	w := &fakeWriter{block: release}
	s := New(inv, shape.New(""), w, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	// Wait for the first tick to be in flight (blocked inside the writer).
	deadline := time.After(2 * time.Second)
	for inv.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first tick never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a tick was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the tick finished")
	}

	// Shutdown order: the tick's batch must land before the buffer closes.
	w.Close()
	if got := w.batchCount(); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.afterClosed != 0 {
		t.Errorf("batches enqueued after close = %d, want 0", w.afterClosed)
	}
}

func TestStats_CountsEnqueued(t *testing.T) {
	t.Parallel()

	inv := &fakeInventory{raw: tickSample()}
	s := New(inv, shape.New("VendorX"), &fakeWriter{}, time.Second, zap.NewNop())

	s.Tick(context.Background())
	s.Tick(context.Background())

	st := s.Stats()
	if st.Ticks != 2 {
		t.Errorf("ticks = %d, want 2", st.Ticks)
	}
	if st.Enqueued != 8 {
		t.Errorf("enqueued = %d, want 8", st.Enqueued)
	}
	if st.LastTick.IsZero() {
		t.Error("last tick not recorded")
	}
}
