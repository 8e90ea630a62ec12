package manager

import (
	"context"

	"inferd/pkg/types"
)

// Infer loads the model if needed and executes one request. The engine
// call runs outside all registry locks; an eviction racing the request
// surfaces as an inference error and the caller may retry.
func (m *Manager) Infer(ctx context.Context, id string, task types.TaskType, input any, params map[string]any, forceReload bool) (any, error) {
	rec, eng, err := m.ensureLoaded(ctx, id, task, forceReload)
	if err != nil {
		return nil, err
	}

	result, err := eng.Infer(ctx, input, params)
	if err != nil {
		return nil, err
	}

	now := m.now()
	m.regMu.Lock()
	rec.LastUsed = now
	m.regMu.Unlock()
	m.tracker.UpdateAccess(id, now)
	return result, nil
}
