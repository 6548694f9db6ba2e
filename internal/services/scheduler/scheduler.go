// Package scheduler drives the periodic capture → shape → enqueue loop.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/ports"
	"github.com/akosarev/hostflux/internal/services/shape"
)

// Measurement names for the points built from one capture.
const (
	MeasurementSystem     = "system"
	MeasurementGraphics   = "graphics"
	MeasurementFilesystem = "filesystem"
)

// Scheduler samples the inventory at a fixed interval and enqueues the shaped
// points as one batch per tick. A tick still running when the next interval
// fires causes the new tick to be skipped, so two ticks never mutate the
// write buffer at once.
type Scheduler struct {
	inv      ports.Inventory
	shaper   *shape.Shaper
	writer   ports.PointWriter
	log      *zap.Logger
	interval time.Duration

	busy atomic.Bool
	wg   sync.WaitGroup

	mu    sync.Mutex
	stats domain.TickStats
}

var _ ports.StatsSource = (*Scheduler)(nil)

func New(inv ports.Inventory, shaper *shape.Shaper, writer ports.PointWriter, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		inv:      inv,
		shaper:   shaper,
		writer:   writer,
		interval: interval,
		log:      log,
	}
}

// Run fires ticks until ctx is done. On cancellation it waits for the
// in-flight tick to finish before returning nil, so the caller can flush the
// write buffer and log out without racing a late batch.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				s.markSkipped()
				s.log.Warn("previous tick still running, skipping")
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.busy.Store(false)
				s.Tick(ctx)
			}()
		}
	}
}

// Tick performs one capture cycle: one sample, one timestamp, one batch of
// exactly 1 + len(graphics) + len(filesystems) points.
func (s *Scheduler) Tick(ctx context.Context) {
	ts := time.Now()

	raw, err := s.inv.Collect(ctx, domain.DefaultGroups)
	if err != nil {
		// Degraded tick: shape whatever groups were returned.
		s.log.Warn("inventory degraded", zap.Error(err))
	}

	points := BuildPoints(s.shaper.Shape(raw), ts)
	s.writer.EnqueueBatch(points)
	s.markDone(ts, uint64(len(points)))
}

// BuildPoints turns shaped entities into points, all stamped with the single
// tick timestamp.
func BuildPoints(sh domain.Shaped, ts time.Time) []domain.Point {
	points := make([]domain.Point, 0, 1+len(sh.Graphics)+len(sh.Filesystems))
	points = append(points, domain.Point{
		Measurement: MeasurementSystem,
		Fields:      sh.System.Fields,
		Tags:        sh.System.Tags,
		Timestamp:   ts,
	})
	for _, e := range sh.Graphics {
		points = append(points, domain.Point{
			Measurement: MeasurementGraphics,
			Fields:      e.Fields,
			Tags:        e.Tags,
			Timestamp:   ts,
		})
	}
	for _, e := range sh.Filesystems {
		points = append(points, domain.Point{
			Measurement: MeasurementFilesystem,
			Fields:      e.Fields,
			Tags:        e.Tags,
			Timestamp:   ts,
		})
	}
	return points
}

// Stats returns a snapshot of scheduler progress.
func (s *Scheduler) Stats() domain.TickStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) markDone(ts time.Time, enqueued uint64) {
	s.mu.Lock()
	s.stats.LastTick = ts
	s.stats.Ticks++
	s.stats.Enqueued += enqueued
	s.mu.Unlock()
}

func (s *Scheduler) markSkipped() {
	s.mu.Lock()
	s.stats.Skipped++
	s.mu.Unlock()
}
