// Package domain holds the telemetry types shared by every component.
package domain

import "time"

// Point is one measurement observation: a name, numeric fields, string tags,
// and a single timestamp.
type Point struct {
	Fields      map[string]float64
	Tags        map[string]string
	Measurement string
	Timestamp   time.Time
}

// Entity is the (fields, tags) pair derived from one logical unit: the whole
// system, one graphics controller, or one filesystem.
type Entity struct {
	Fields map[string]float64
	Tags   map[string]string
}

// Shaped groups the entities derived from one capture instant. All of them
// share the capture's timestamp when turned into points.
type Shaped struct {
	Graphics    []Entity
	Filesystems []Entity
	System      Entity
}

// TickStats is a snapshot of scheduler progress, served by the status endpoint.
type TickStats struct {
	LastTick time.Time `json:"last_tick"`
	Ticks    uint64    `json:"ticks"`
	Skipped  uint64    `json:"skipped"`
	Enqueued uint64    `json:"enqueued"`
}
