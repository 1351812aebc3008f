package notify2

import "sync"

// registry maps server assigned notification ids to the notifications
// waiting for events on them.
type registry struct {
	mu   sync.Mutex
	byID map[uint32]*Notification
}

func newRegistry() *registry {
	return &registry{byID: make(map[uint32]*Notification)}
}

// add records n under id, replacing any previous entry.
func (r *registry) add(id uint32, n *Notification) {
	r.mu.Lock()
	r.byID[id] = n
	r.mu.Unlock()
}

func (r *registry) lookup(id uint32) (*Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	return n, ok
}

func (r *registry) remove(id uint32) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// removeIf deletes the entry for id only while it still belongs to n.
func (r *registry) removeIf(id uint32, n *Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[id] != n {
		return false
	}
	delete(r.byID, id)
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// reset empties the registry and returns how many entries it held.
func (r *registry) reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byID)
	r.byID = make(map[uint32]*Notification)
	return n
}
