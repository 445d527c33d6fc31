package reconcile

import "sync"

// PushGuard serializes bid pushes per listing id, so an engine push and
// a manual push from the edit path never overlap for the same listing.
// Entries are never removed; listings are never deleted in this design.
type PushGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPushGuard creates an empty guard.
func NewPushGuard() *PushGuard {
	return &PushGuard{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for the listing id.
func (g *PushGuard) Lock(listingID string) {
	g.lockFor(listingID).Lock()
}

// Unlock releases the lock for the listing id.
func (g *PushGuard) Unlock(listingID string) {
	g.lockFor(listingID).Unlock()
}

func (g *PushGuard) lockFor(listingID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[listingID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[listingID] = lock
	}
	return lock
}
