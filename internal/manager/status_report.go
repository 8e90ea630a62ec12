package manager

import (
	"sort"

	"inferd/pkg/types"
)

// StatusAll reports every model the service knows about: the registry
// snapshot merged with artifacts on disk that have no registry entry
// (shown as on-disk with no task kind). Rows are sorted by id.
func (m *Manager) StatusAll() []types.ModelStatus {
	m.regMu.RLock()
	out := make([]types.ModelStatus, 0, len(m.records))
	seen := make(map[string]bool, len(m.records))
	for id, rec := range m.records {
		out = append(out, rec.statusLocked())
		seen[id] = true
	}
	m.regMu.RUnlock()

	for _, id := range m.cache.ListPresent() {
		if seen[id] {
			continue
		}
		out = append(out, types.ModelStatus{
			ModelID: id,
			State:   types.StateOnDisk,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// Status assembles the full status response for the HTTP API.
func (m *Manager) Status() types.StatusResponse {
	return types.StatusResponse{
		Models:           m.StatusAll(),
		VRAMUsagePercent: m.tracker.UsagePercent(),
		ActiveDownloads:  m.cache.ActiveFetches(),
		EvictionsTotal:   m.tracker.EvictionsTotal(),
		LoadsTotal:       m.tracker.LoadsTotal(),
		ServerTimeUnix:   m.now().Unix(),
	}
}
