// Package shape turns raw inventory samples into typed field/tag entities.
package shape

import (
	"strings"

	"github.com/akosarev/hostflux/internal/domain"
)

// DefaultVendorFilter keeps only graphics controllers whose vendor string
// contains this substring. It is a policy value; New accepts an override.
const DefaultVendorFilter = "NVIDIA"

// bytesPerMB converts byte counts to decimal megabytes.
const bytesPerMB = 1_000_000

// Shaper derives entities from one raw sample. It carries no mutable state:
// shaping the same sample twice yields the same result.
type Shaper struct {
	vendorFilter string
}

// New returns a Shaper with the given vendor filter substring. An empty
// filter falls back to DefaultVendorFilter.
func New(vendorFilter string) *Shaper {
	if vendorFilter == "" {
		vendorFilter = DefaultVendorFilter
	}
	return &Shaper{vendorFilter: vendorFilter}
}

// Shape derives one system entity from the load/memory groups, one entity per
// filesystem, and one entity per graphics controller passing the vendor
// filter.
func (s *Shaper) Shape(raw domain.RawSample) domain.Shaped {
	out := domain.Shaped{System: entity(systemScalars(raw))}

	for _, g := range objects(raw[domain.GroupGraphics]) {
		vendor, _ := g["vendor"].(string)
		if !strings.Contains(vendor, s.vendorFilter) {
			continue
		}
		out.Graphics = append(out.Graphics, entity(g))
	}
	for _, fs := range objects(raw[domain.GroupFilesystems]) {
		out.Filesystems = append(out.Filesystems, entity(fs))
	}
	return out
}

// systemScalars picks the fixed system-level value set. Memory byte counts
// are reported as decimal megabytes.
func systemScalars(raw domain.RawSample) map[string]any {
	sys := make(map[string]any)
	if load, ok := raw[domain.GroupLoad].(map[string]any); ok {
		putRaw(sys, "load_avg", load, "avg")
		putRaw(sys, "cpu_percent", load, "cpu_percent")
	}
	if mem, ok := raw[domain.GroupMemory].(map[string]any); ok {
		putMB(sys, "mem_total_mb", mem, "total")
		putMB(sys, "mem_used_mb", mem, "used")
		putMB(sys, "mem_free_mb", mem, "free")
		putMB(sys, "mem_active_mb", mem, "active")
		putMB(sys, "mem_available_mb", mem, "available")
	}
	return sys
}

func putRaw(dst map[string]any, dstKey string, src map[string]any, srcKey string) {
	if v, ok := src[srcKey]; ok {
		dst[dstKey] = v
	}
}

func putMB(dst map[string]any, dstKey string, src map[string]any, srcKey string) {
	if n, ok := asFloat(src[srcKey]); ok {
		dst[dstKey] = n / bytesPerMB
	}
}

// objects accepts a group payload that is either one object or a list.
func objects(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case map[string]any:
		return []map[string]any{x}
	}
	return nil
}

func entity(obj map[string]any) domain.Entity {
	fields, tags := partition(obj)
	return domain.Entity{Fields: fields, Tags: tags}
}

// partition splits an object purely by runtime value kind: numerics become
// fields, strings become tags, anything else is dropped. It knows nothing
// about specific key names, so a key can never land in both maps.
func partition(obj map[string]any) (map[string]float64, map[string]string) {
	fields := make(map[string]float64, len(obj))
	tags := make(map[string]string)
	for k, v := range obj {
		if s, ok := v.(string); ok {
			tags[k] = s
			continue
		}
		if n, ok := asFloat(v); ok {
			fields[k] = n
		}
	}
	return fields, tags
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
