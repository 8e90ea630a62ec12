package manager

// PurgeAll releases every loaded model, clears the device cache once, and
// resets the registry. Disk artifacts stay cached; they reappear in status
// as on-disk entries. A load in flight during the purge re-inserts its
// record when it completes.
func (m *Manager) PurgeAll() int {
	m.regMu.Lock()
	n := m.tracker.PurgeAll()
	m.records = make(map[string]*ModelRecord)
	m.regMu.Unlock()

	m.publish(Event{Name: "purge", Fields: map[string]any{"released": n}})
	m.log.Info().Int("released", n).Msg("registry purged")
	return n
}
