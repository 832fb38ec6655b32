package session

// LockCount exposes the number of live lock entries to tests.
func LockCount(h *Hub) int {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()
	return len(h.locks)
}
