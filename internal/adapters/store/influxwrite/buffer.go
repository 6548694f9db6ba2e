// Package influxwrite adapts the store's batched write API into the agent's
// point buffer.
package influxwrite

import (
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/ports"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 1000 // milliseconds
	drainTimeout         = 5 * time.Second
)

// Buffer is a write handle scoped to one org/bucket. Points are buffered and
// flushed asynchronously; the default tag set is stamped onto every point
// regardless of caller.
type Buffer struct {
	client  influxdb2.Client
	write   api.WriteAPI
	log     *zap.Logger
	drained chan struct{}
}

var _ ports.PointWriter = (*Buffer)(nil)

// New builds the write handle. The token comes from a completed Authorize
// cycle; defaultTags are attached to every point written through the handle.
func New(endpoint, token, org, bucket string, defaultTags map[string]string, log *zap.Logger) *Buffer {
	opts := influxdb2.DefaultOptions().
		SetBatchSize(defaultBatchSize).
		SetFlushInterval(defaultFlushInterval)
	for k, v := range defaultTags {
		opts = opts.AddDefaultTag(k, v)
	}

	client := influxdb2.NewClientWithOptions(endpoint, token, opts)
	w := client.WriteAPI(org, bucket)

	b := &Buffer{client: client, write: w, log: log, drained: make(chan struct{})}
	go func() {
		defer close(b.drained)
		for err := range w.Errors() {
			log.Warn("async write failed", zap.Error(err))
		}
	}()
	return b
}

// Enqueue buffers one point for asynchronous flush.
func (b *Buffer) Enqueue(p domain.Point) error {
	if err := validate(p); err != nil {
		return err
	}
	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	b.write.WritePoint(write.NewPoint(p.Measurement, p.Tags, fields, p.Timestamp))
	return nil
}

// EnqueueBatch buffers a batch. A malformed point is logged and skipped so
// one bad point cannot abort a scheduler tick.
func (b *Buffer) EnqueueBatch(ps []domain.Point) {
	for _, p := range ps {
		if err := b.Enqueue(p); err != nil {
			b.log.Warn("skipping point",
				zap.String("measurement", p.Measurement),
				zap.Error(err))
		}
	}
}

// Close flushes every buffered point, releases the client, and waits for the
// error drain to finish. It reports whether shutdown completed cleanly;
// skipping it risks losing the last unflushed batch.
func (b *Buffer) Close() bool {
	b.write.Flush()
	b.client.Close()
	select {
	case <-b.drained:
		return true
	case <-time.After(drainTimeout):
		b.log.Warn("write buffer drain timed out")
		return false
	}
}

func validate(p domain.Point) error {
	if p.Measurement == "" {
		return fmt.Errorf("%w: empty measurement", domain.ErrInvalidPoint)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("%w: no fields", domain.ErrInvalidPoint)
	}
	return nil
}
