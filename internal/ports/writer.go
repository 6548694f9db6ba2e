package ports

import "github.com/akosarev/hostflux/internal/domain"

// PointWriter buffers points for asynchronous persistence to one org/bucket.
type PointWriter interface {
	// Enqueue buffers a single point. A malformed point yields an error and
	// is not buffered.
	Enqueue(p domain.Point) error
	// EnqueueBatch buffers a batch; malformed points are logged and skipped
	// so one bad point cannot abort a scheduler tick.
	EnqueueBatch(ps []domain.Point)
	// Close flushes everything buffered, releases the handle, and reports
	// whether shutdown completed cleanly.
	Close() bool
}

// StatsSource exposes scheduler progress for the status endpoint.
type StatsSource interface {
	Stats() domain.TickStats
}
