package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/lox/aqidash/internal/filters"
)

// Dashboard owns the filter selection and the data bag. Presentation
// layers share one instance by reference.
type Dashboard struct {
	Filters *filters.State
	Data    *Orchestrator

	now     func() time.Time
	mu      sync.Mutex
	horizon int
}

// New creates a dashboard with default filters and an idle bag.
func New(gw Gateway) *Dashboard {
	return &Dashboard{
		Filters: filters.New(time.Now()),
		Data:    NewOrchestrator(gw),
		now:     time.Now,
		horizon: DefaultHorizon,
	}
}

// Apply fetches every slot for the current filters and records the apply time.
func (d *Dashboard) Apply(ctx context.Context) *Round {
	p := d.Filters.Payload(nil)
	d.Filters.MarkApplied(d.now())

	d.mu.Lock()
	d.horizon = DefaultHorizon
	d.mu.Unlock()
	return d.Data.ApplyFilters(ctx, p)
}

// Predict refetches the forecast slots with a new horizon.
func (d *Dashboard) Predict(ctx context.Context, years int) (*Round, error) {
	r, err := d.Data.Predict(ctx, d.Filters.Payload(nil), years)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.horizon = years
	d.mu.Unlock()
	return r, nil
}

// Horizon is the prediction horizon last requested.
func (d *Dashboard) Horizon() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.horizon
}

// Snapshot is everything an export needs, captured at one instant.
type Snapshot struct {
	Filters   filters.Values
	Bag       Bag
	Timestamp time.Time
}

// ExportSnapshot captures the filters and bag. The timestamp is the last
// apply time, or now if filters were never applied.
func (d *Dashboard) ExportSnapshot(now time.Time) Snapshot {
	v := d.Filters.Values()
	ts := now
	if v.LastAppliedAt != nil {
		ts = *v.LastAppliedAt
	}
	return Snapshot{
		Filters:   v,
		Bag:       d.Data.Snapshot(),
		Timestamp: ts,
	}
}
