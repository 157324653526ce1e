package lock

// tracked reports how many project names currently have a lock entry.
func (m *Manager) tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.projects)
}
