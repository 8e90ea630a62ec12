// Package vram tracks device memory held by loaded models and enforces the
// admission budget: effective limit = capacity * threshold, LRU eviction
// when a new load does not fit.
package vram

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/gpu"
)

// Unloader is the slice of an engine the tracker needs to reclaim memory.
type Unloader interface {
	Unload()
}

// entry is one resident model.
type entry struct {
	id          string
	footprintMB float64
	lastUsed    time.Time
	handle      Unloader
}

// Snapshot is a read-only view of one resident model for status reports.
type Snapshot struct {
	ID          string
	FootprintMB float64
	LastUsed    time.Time
}

// Tracker owns the budget bookkeeping. All mutating methods are safe for
// concurrent use; the zero value is not usable, construct with New.
type Tracker struct {
	device     gpu.Device
	fallbackMB float64
	threshold  float64
	log        zerolog.Logger

	mu       sync.Mutex
	loaded   map[string]*entry
	reserved map[string]float64

	evictionsTotal atomic.Uint64
	loadsTotal     atomic.Uint64
}

// New builds a tracker over the given device. fallbackMB is the assumed
// capacity when the device cannot report one; threshold scales capacity
// down to the usable budget.
func New(device gpu.Device, fallbackMB, threshold float64, log zerolog.Logger) *Tracker {
	if fallbackMB <= 0 {
		fallbackMB = 8192
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.9
	}
	return &Tracker{
		device:     device,
		fallbackMB: fallbackMB,
		threshold:  threshold,
		log:        log,
		loaded:     make(map[string]*entry),
		reserved:   make(map[string]float64),
	}
}

// EffectiveLimitMB is the admissible budget: device capacity (or the
// configured fallback when unknown) scaled by the threshold.
func (t *Tracker) EffectiveLimitMB() float64 {
	total := t.device.TotalCapacityMB()
	if total <= 0 {
		total = t.fallbackMB
	}
	return total * t.threshold
}

// usedMBLocked returns current usage. When the device reports a real
// capacity its own usage reading wins; otherwise the tracker self-accounts
// with registered footprints plus outstanding reservations.
func (t *Tracker) usedMBLocked() float64 {
	if t.device.TotalCapacityMB() > 0 {
		return t.device.UsedMB()
	}
	var sum float64
	for _, e := range t.loaded {
		sum += e.footprintMB
	}
	for _, mb := range t.reserved {
		sum += mb
	}
	return sum
}

// UsedMB reports current usage in MB.
func (t *Tracker) UsedMB() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usedMBLocked()
}

// CanAdmit reports whether requiredMB fits under the effective limit right
// now, and how much room is left (clamped at zero).
func (t *Tracker) CanAdmit(requiredMB float64) (bool, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canAdmitLocked(requiredMB)
}

func (t *Tracker) canAdmitLocked(requiredMB float64) (bool, float64) {
	available := t.EffectiveLimitMB() - t.usedMBLocked()
	if available < 0 {
		available = 0
	}
	return requiredMB <= available, available
}

// Reserve holds an estimate against the budget while a load is in flight,
// so concurrent loads cannot jointly overshoot. Register settles it;
// CancelReservation abandons it.
func (t *Tracker) Reserve(id string, estimateMB float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserved[id] = estimateMB
}

// CancelReservation drops a reservation without registering. No-op when
// the id has no reservation.
func (t *Tracker) CancelReservation(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.reserved, id)
}

// Register records a successfully loaded model and consumes any
// reservation held for it. Double registration is a caller bug and is
// rejected.
func (t *Tracker) Register(id string, footprintMB float64, lastUsed time.Time, handle Unloader) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.reserved, id)
	if _, exists := t.loaded[id]; exists {
		return ErrAlreadyRegistered(id)
	}
	t.loaded[id] = &entry{id: id, footprintMB: footprintMB, lastUsed: lastUsed, handle: handle}
	t.loadsTotal.Add(1)
	t.log.Debug().Str("model", id).Float64("footprint_mb", footprintMB).Msg("model registered")
	return nil
}

// Release unloads and forgets one model. Returns false when the id is not
// registered, so repeated releases are harmless.
func (t *Tracker) Release(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.loaded[id]
	if !ok {
		return false
	}
	t.releaseLocked(e)
	t.device.ClearCache()
	return true
}

func (t *Tracker) releaseLocked(e *entry) {
	if e.handle != nil {
		e.handle.Unload()
	}
	delete(t.loaded, e.id)
}

// EvictToFit drops least-recently-used models until requiredMB fits,
// returning the evicted ids in order. When everything is gone and the
// request still does not fit it returns a capacity error.
func (t *Tracker) EvictToFit(requiredMB float64) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []string
	for {
		fits, available := t.canAdmitLocked(requiredMB)
		if fits {
			return evicted, nil
		}
		victim := t.lruLocked()
		if victim == nil {
			return evicted, ErrCapacity(requiredMB, available)
		}
		t.releaseLocked(victim)
		t.device.ClearCache()
		t.evictionsTotal.Add(1)
		evicted = append(evicted, victim.id)
		t.log.Info().
			Str("model", victim.id).
			Float64("freed_mb", victim.footprintMB).
			Float64("required_mb", requiredMB).
			Msg("model evicted")
	}
}

// lruLocked picks the least-recently-used entry, breaking timestamp ties
// by id so eviction order is deterministic.
func (t *Tracker) lruLocked() *entry {
	var victim *entry
	for _, e := range t.loaded {
		if victim == nil {
			victim = e
			continue
		}
		if e.lastUsed.Before(victim.lastUsed) ||
			(e.lastUsed.Equal(victim.lastUsed) && e.id < victim.id) {
			victim = e
		}
	}
	return victim
}

// UpdateAccess refreshes the LRU clock for a resident model. Unknown ids
// are ignored; callers race evictions and that is fine.
func (t *Tracker) UpdateAccess(id string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.loaded[id]; ok {
		e.lastUsed = at
	}
}

// UsagePercent reports device usage over real capacity. Zero when the
// device cannot report a capacity.
func (t *Tracker) UsagePercent() float64 {
	total := t.device.TotalCapacityMB()
	if total <= 0 {
		return 0
	}
	return t.device.UsedMB() / total * 100
}

// PurgeAll releases every resident model and clears the device cache once.
// Reservations for in-flight loads survive; their owners settle them.
func (t *Tracker) PurgeAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.loaded)
	for _, e := range t.loaded {
		if e.handle != nil {
			e.handle.Unload()
		}
	}
	t.loaded = make(map[string]*entry)
	t.device.ClearCache()
	if n > 0 {
		t.log.Info().Int("count", n).Msg("all models released")
	}
	return n
}

// TrackedMB sums registered footprints (reservations excluded).
func (t *Tracker) TrackedMB() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sum float64
	for _, e := range t.loaded {
		sum += e.footprintMB
	}
	return sum
}

// Loaded snapshots resident models, ids ascending.
func (t *Tracker) Loaded() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Snapshot, 0, len(t.loaded))
	for _, e := range t.loaded {
		out = append(out, Snapshot{ID: e.id, FootprintMB: e.footprintMB, LastUsed: e.lastUsed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EvictionsTotal counts evictions since startup.
func (t *Tracker) EvictionsTotal() uint64 { return t.evictionsTotal.Load() }

// LoadsTotal counts successful registrations since startup.
func (t *Tracker) LoadsTotal() uint64 { return t.loadsTotal.Load() }
