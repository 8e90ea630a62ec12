package manager

import "context"

// Fetch pre-warms the artifact cache without loading the model or creating
// a registry record. Pre-fetched artifacts show up in status via the disk
// merge.
func (m *Manager) Fetch(ctx context.Context, id string) (string, error) {
	path, err := m.cache.Ensure(ctx, id)
	if err != nil {
		return "", err
	}
	m.publish(Event{Name: "fetch_done", ModelID: id})
	return path, nil
}
