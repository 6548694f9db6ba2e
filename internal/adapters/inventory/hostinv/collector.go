// Package hostinv samples host metrics: load and memory through gopsutil,
// filesystems through disk usage, graphics controllers through ghw.
package hostinv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/akosarev/hostflux/internal/domain"
	"github.com/akosarev/hostflux/internal/ports"
)

// Collector samples the host directly. Each call captures fresh values.
type Collector struct{}

var _ ports.Inventory = (*Collector)(nil)

func New() *Collector {
	return &Collector{}
}

// Collect samples the requested groups. Failed groups are reported in the
// joined error while the remaining groups still appear in the sample, so the
// tick degrades instead of failing.
func (c *Collector) Collect(ctx context.Context, groups []string) (domain.RawSample, error) {
	out := make(domain.RawSample, len(groups))
	var errs []error
	for _, g := range groups {
		v, err := c.sample(ctx, g)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", g, err))
			continue
		}
		out[g] = v
	}
	return out, errors.Join(errs...)
}

func (c *Collector) sample(ctx context.Context, group string) (any, error) {
	switch group {
	case domain.GroupLoad:
		return loadGroup(ctx)
	case domain.GroupMemory:
		return memoryGroup(ctx)
	case domain.GroupFilesystems:
		return filesystemGroup(ctx)
	case domain.GroupGraphics:
		return graphicsGroup()
	}
	return nil, fmt.Errorf("unknown group %q", group)
}

func loadGroup(ctx context.Context) (map[string]any, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"avg": avg.Load1}
	// Instant (non-blocking) overall CPU percentage since the previous call.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		out["cpu_percent"] = pct[0]
	}
	return out, nil
}

func memoryGroup(ctx context.Context) (map[string]any, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total":     float64(vm.Total),
		"used":      float64(vm.Used),
		"free":      float64(vm.Free),
		"active":    float64(vm.Active),
		"available": float64(vm.Available),
	}, nil
}

func filesystemGroup(ctx context.Context) ([]map[string]any, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			// Pseudo and stale mounts fail usage lookups; skip them.
			continue
		}
		out = append(out, map[string]any{
			"name":        p.Device,
			"mount":       p.Mountpoint,
			"use_percent": u.UsedPercent,
		})
	}
	return out, nil
}

func graphicsGroup() ([]map[string]any, error) {
	info, err := ghw.GPU(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		g := map[string]any{"index": float64(card.Index)}
		if dev := card.DeviceInfo; dev != nil {
			if dev.Vendor != nil {
				g["vendor"] = dev.Vendor.Name
			}
			if dev.Product != nil {
				g["model"] = dev.Product.Name
			}
		}
		out = append(out, g)
	}
	return out, nil
}
