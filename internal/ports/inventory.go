package ports

import (
	"context"

	"github.com/akosarev/hostflux/internal/domain"
)

// Inventory retrieves raw host metrics for the requested group names. A group
// that fails to sample is reported through the returned error while the
// remaining groups still appear in the sample, so a tick can degrade instead
// of failing outright.
type Inventory interface {
	Collect(ctx context.Context, groups []string) (domain.RawSample, error)
}
