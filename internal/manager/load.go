package manager

import (
	"context"

	"inferd/internal/artifact"
	"inferd/internal/engine"
	"inferd/pkg/types"
)

// RequestLoad brings a model to the loaded state: fetch the artifact if it
// is missing, evict idle models until the estimate fits the budget, load,
// and register the real footprint. With forceReload a resident model is
// released first, even if the reload then fails.
//
// Concurrent calls for the same id serialize on the record's load lock;
// the second caller finds the model resident and returns without work.
func (m *Manager) RequestLoad(ctx context.Context, id string, task types.TaskType, forceReload bool) error {
	_, _, err := m.ensureLoaded(ctx, id, task, forceReload)
	return err
}

// ensureLoaded is the shared load path behind RequestLoad and Infer. It
// returns the record and the engine captured while resident, so inference
// can run outside every lock.
func (m *Manager) ensureLoaded(ctx context.Context, id string, task types.TaskType, forceReload bool) (*ModelRecord, engine.Engine, error) {
	if err := artifact.ValidateID(id); err != nil {
		return nil, nil, err
	}
	// Unsupported kinds fail before any disk or network activity. The
	// probe engine doubles as the load candidate.
	eng, err := m.newEngine(task, id, m.engineOpts)
	if err != nil {
		return nil, nil, err
	}

	rec, err := m.getOrCreateRecord(id, task)
	if err != nil {
		return nil, nil, err
	}

	// One load attempt per id at a time. Fetch and engine load below run
	// with only this lock held.
	rec.loadMu.Lock()
	defer rec.loadMu.Unlock()

	m.regMu.Lock()
	if rec.State == types.StateLoaded && rec.engine != nil {
		if !forceReload {
			now := m.now()
			rec.LastUsed = now
			m.tracker.UpdateAccess(id, now)
			resident := rec.engine
			m.regMu.Unlock()
			return rec, resident, nil
		}
		// Release first so a failed reload cannot leave a stale resident
		// entry behind.
		m.tracker.Release(id)
		rec.markUnloadedLocked()
		m.publish(Event{Name: "force_release", ModelID: id})
	}
	rec.Err = ""
	m.regMu.Unlock()

	if err := m.fetchPhase(ctx, rec); err != nil {
		return nil, nil, err
	}
	if err := m.admitPhase(rec, task); err != nil {
		return nil, nil, err
	}
	if err := m.loadPhase(rec, eng); err != nil {
		return nil, nil, err
	}
	return rec, eng, nil
}

// getOrCreateRecord resolves the registry entry for id, enforcing the
// immutable task kind.
func (m *Manager) getOrCreateRecord(id string, task types.TaskType) (*ModelRecord, error) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	if rec, ok := m.records[id]; ok {
		if rec.Task != task {
			return nil, ErrTaskMismatch(id, rec.Task, task)
		}
		return rec, nil
	}
	rec := &ModelRecord{ID: id, Task: task, State: types.StateNotPresent}
	m.records[id] = rec
	return rec, nil
}

// fetchPhase makes sure the artifact is on disk, downloading it when
// missing. The transfer itself runs outside all registry locks.
func (m *Manager) fetchPhase(ctx context.Context, rec *ModelRecord) error {
	if m.cache.IsPresent(rec.ID) {
		m.regMu.Lock()
		rec.DiskPath = m.cache.PathFor(rec.ID)
		if rec.State != types.StateLoaded {
			rec.State = types.StateOnDisk
		}
		m.regMu.Unlock()
		return nil
	}

	m.regMu.Lock()
	rec.State = types.StateDownloading
	m.regMu.Unlock()
	m.publish(Event{Name: "download_start", ModelID: rec.ID})
	m.log.Info().Str("model", rec.ID).Msg("artifact missing, downloading")

	path, err := m.cache.Ensure(ctx, rec.ID)

	m.regMu.Lock()
	defer m.regMu.Unlock()
	if err != nil {
		rec.State = types.StateFailed
		rec.Err = err.Error()
		m.publish(Event{Name: "download_failed", ModelID: rec.ID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	rec.DiskPath = path
	rec.State = types.StateOnDisk
	m.publish(Event{Name: "download_done", ModelID: rec.ID})
	return nil
}

// admitPhase charges the pre-load estimate against the budget, evicting
// LRU models as needed, and leaves a reservation that loadPhase settles.
func (m *Manager) admitPhase(rec *ModelRecord, task types.TaskType) error {
	estimate := m.estimateFor(task)

	m.regMu.Lock()
	defer m.regMu.Unlock()

	if fits, _ := m.tracker.CanAdmit(estimate); !fits {
		evicted, err := m.tracker.EvictToFit(estimate)
		m.applyEvictionsLocked(evicted)
		if err != nil {
			rec.State = types.StateFailed
			rec.Err = err.Error()
			m.publish(Event{Name: "admit_failed", ModelID: rec.ID, Fields: map[string]any{"required_mb": estimate}})
			return err
		}
	}
	m.tracker.Reserve(rec.ID, estimate)
	return nil
}

// applyEvictionsLocked flips evicted records back to on-disk. Caller holds
// regMu; the tracker has already unloaded the engines.
func (m *Manager) applyEvictionsLocked(evicted []string) {
	for _, id := range evicted {
		if rec, ok := m.records[id]; ok {
			rec.markUnloadedLocked()
		}
		m.publish(Event{Name: "evict", ModelID: id})
	}
}

// loadPhase runs the engine load outside locks, then registers the real
// footprint and marks the record resident.
func (m *Manager) loadPhase(rec *ModelRecord, eng engine.Engine) error {
	m.publish(Event{Name: "load_start", ModelID: rec.ID})

	if err := eng.Load(rec.DiskPath); err != nil {
		m.tracker.CancelReservation(rec.ID)
		m.regMu.Lock()
		rec.State = types.StateFailed
		rec.Err = err.Error()
		m.regMu.Unlock()
		m.publish(Event{Name: "load_failed", ModelID: rec.ID, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	footprint := eng.MemoryFootprintMB()
	now := m.now()

	m.regMu.Lock()
	defer m.regMu.Unlock()
	if err := m.tracker.Register(rec.ID, footprint, now, eng); err != nil {
		eng.Unload()
		rec.State = types.StateFailed
		rec.Err = err.Error()
		return engine.ErrLoad(rec.ID, err)
	}
	rec.State = types.StateLoaded
	rec.engine = eng
	rec.FootprintMB = footprint
	rec.LastUsed = now
	rec.Err = ""
	// A purge may have dropped the record while the load was in flight;
	// the finished load wins the slot back.
	if m.records[rec.ID] != rec {
		m.records[rec.ID] = rec
	}
	m.publish(Event{Name: "load_ready", ModelID: rec.ID, Fields: map[string]any{"footprint_mb": footprint}})
	m.log.Info().
		Str("model", rec.ID).
		Str("task", string(rec.Task)).
		Float64("footprint_mb", footprint).
		Msg("model loaded")
	return nil
}
