package manager

import (
	"sync"
	"time"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// ModelRecord is the registry entry for one model id. All fields are
// guarded by Manager.regMu; loadMu serializes load attempts for the id and
// is the only lock held across downloads and engine loads.
type ModelRecord struct {
	ID          string
	Task        types.TaskType
	State       types.ModelState
	DiskPath    string
	FootprintMB float64
	LastUsed    time.Time
	// Err keeps the last failure for status reporting; cleared when a new
	// attempt starts.
	Err string

	engine engine.Engine // non-nil exactly while State == StateLoaded
	loadMu sync.Mutex
}

// statusLocked projects the record for the status API. Caller holds regMu.
func (r *ModelRecord) statusLocked() types.ModelStatus {
	st := types.ModelStatus{
		ModelID:  r.ID,
		TaskType: r.Task,
		State:    r.State,
		VRAMMB:   r.FootprintMB,
	}
	if !r.LastUsed.IsZero() {
		st.LastUsed = r.LastUsed.Unix()
	}
	return st
}

// markUnloadedLocked flips a resident record back to on-disk after an
// eviction or forced release. Caller holds regMu.
func (r *ModelRecord) markUnloadedLocked() {
	r.State = types.StateOnDisk
	r.engine = nil
	r.FootprintMB = 0
}
