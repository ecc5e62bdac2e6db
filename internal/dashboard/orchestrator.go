package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lox/aqidash/internal/metrics"
	"github.com/lox/aqidash/internal/models"
)

// Status is the lifecycle state of a slot.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Slot is one entry of the data bag. Value is nil until the first success
// and is kept when a later fetch fails.
type Slot struct {
	Key       Key
	Value     any
	Status    Status
	Err       error
	Issued    uint64
	Applied   uint64
	UpdatedAt time.Time
}

// Reason is the failure message, or "" unless the slot failed.
func (s Slot) Reason() string {
	if s.Status != StatusFailed || s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Round is one fan-out of fetches. Completions from rounds older than the
// one a slot last applied are discarded.
type Round struct {
	ID   uint64
	Kind string
	Keys []Key
	wg   sync.WaitGroup
}

// Wait blocks until every fetch in the round has settled.
func (r *Round) Wait() {
	r.wg.Wait()
}

// Listener is called after every slot transition, outside the bag lock.
type Listener func(Slot)

// Orchestrator fans requests out across the gateway and collects the
// results into a bag keyed by metric.
type Orchestrator struct {
	gw    Gateway
	round atomic.Uint64
	now   func() time.Time

	mu       sync.Mutex
	slots    map[Key]*Slot
	listener Listener
}

// NewOrchestrator returns an orchestrator with every slot idle.
func NewOrchestrator(gw Gateway) *Orchestrator {
	o := &Orchestrator{
		gw:    gw,
		now:   time.Now,
		slots: make(map[Key]*Slot, len(Keys)),
	}
	for _, k := range Keys {
		o.slots[k] = &Slot{Key: k}
	}
	return o
}

// OnUpdate registers the change listener, replacing any previous one.
func (o *Orchestrator) OnUpdate(fn Listener) {
	o.mu.Lock()
	o.listener = fn
	o.mu.Unlock()
}

// ApplyFilters refetches every slot. The forecast slots get the default
// horizon; the rest get the payload without one. It returns without waiting.
func (o *Orchestrator) ApplyFilters(ctx context.Context, p models.FilterPayload) *Round {
	jobs := make(map[Key]models.FilterPayload, len(Keys))
	for _, k := range Keys {
		if isForecastKey(k) {
			jobs[k] = p.WithPrediction(DefaultHorizon)
		} else {
			jobs[k] = p.Historical()
		}
	}
	return o.launch(ctx, "apply", jobs)
}

// Predict refetches only the forecast slots with the given horizon.
func (o *Orchestrator) Predict(ctx context.Context, p models.FilterPayload, years int) (*Round, error) {
	if years <= 0 {
		return nil, fmt.Errorf("prediction horizon must be positive, got %d", years)
	}
	jobs := make(map[Key]models.FilterPayload, len(ForecastKeys))
	for _, k := range ForecastKeys {
		jobs[k] = p.WithPrediction(years)
	}
	return o.launch(ctx, "predict", jobs), nil
}

func (o *Orchestrator) launch(ctx context.Context, kind string, jobs map[Key]models.FilterPayload) *Round {
	r := &Round{ID: o.round.Add(1), Kind: kind}
	metrics.RoundsStarted.WithLabelValues(kind).Inc()

	var changed []Slot
	o.mu.Lock()
	for _, k := range Keys {
		if _, ok := jobs[k]; !ok {
			continue
		}
		s := o.slots[k]
		s.Issued = r.ID
		s.Status = StatusLoading
		r.Keys = append(r.Keys, k)
		changed = append(changed, *s)
	}
	listener := o.listener
	o.mu.Unlock()
	notify(listener, changed...)

	r.wg.Add(len(r.Keys))
	for _, k := range r.Keys {
		go func(k Key, p models.FilterPayload) {
			defer r.wg.Done()
			v, err := fetchers[k](ctx, o.gw, p)
			o.settle(k, r.ID, v, err)
		}(k, jobs[k])
	}
	return r
}

// settle applies a completion for key k from round id.
func (o *Orchestrator) settle(k Key, id uint64, v any, err error) {
	o.mu.Lock()
	s := o.slots[k]

	outcome := "ok"
	switch {
	case id < s.Applied:
		outcome = "stale"
	case err != nil && id != s.Issued:
		outcome = "superseded"
	case err != nil:
		outcome = "error"
		s.Status = StatusFailed
		s.Err = err
		s.Applied = id
		s.UpdatedAt = o.now()
	default:
		s.Value = v
		s.Err = nil
		s.Applied = id
		s.UpdatedAt = o.now()
		if id == s.Issued {
			s.Status = StatusReady
		}
	}
	slot := *s
	listener := o.listener
	o.mu.Unlock()

	metrics.SlotTransitions.WithLabelValues(string(k), outcome).Inc()
	switch outcome {
	case "error":
		log.Printf("dashboard: %s failed in round %d: %v", k, id, err)
		notify(listener, slot)
	case "ok":
		notify(listener, slot)
	}
}

func notify(fn Listener, slots ...Slot) {
	if fn == nil {
		return
	}
	for _, s := range slots {
		fn(s)
	}
}

// Snapshot returns a copy of the bag. Values are shared but never mutated.
func (o *Orchestrator) Snapshot() Bag {
	o.mu.Lock()
	defer o.mu.Unlock()

	b := Bag{slots: make(map[Key]Slot, len(o.slots))}
	for k, s := range o.slots {
		b.slots[k] = *s
	}
	return b
}

// Loading reports whether any slot is awaiting a response.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.slots {
		if s.Status == StatusLoading {
			return true
		}
	}
	return false
}
