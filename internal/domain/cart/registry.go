// internal/domain/cart/registry.go
package cart

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StorageFactory returns the durable storage for one cart owner
type StorageFactory func(owner string) Storage

// Registry keeps one live Store per shopper so every surface reads the same cart
type Registry struct {
	mu         sync.Mutex
	stores     map[string]*entry
	newStorage StorageFactory
	key        string
	logger     logrus.FieldLogger
	now        func() time.Time
}

type entry struct {
	store    *Store
	lastSeen time.Time
	pins     int
}

// Lease is a store pinned in the registry. Sweep and Forget leave a leased
// store in place, so long-lived holders keep sharing it with every request.
type Lease struct {
	*Store
	release func()
}

// Release unpins the store. It is safe to call more than once.
func (l *Lease) Release() {
	l.release()
}

func NewRegistry(newStorage StorageFactory, key string, logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		stores:     make(map[string]*entry),
		newStorage: newStorage,
		key:        key,
		logger:     logger,
		now:        time.Now,
	}
}

// UserOwner is the owner key for an authenticated shopper
func UserOwner(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// GuestOwner is the owner key for an anonymous session
func GuestOwner(sessionID string) string {
	return fmt.Sprintf("guest:%s", sessionID)
}

// Get returns the owner's store, loading it from storage on first use
func (r *Registry) Get(owner string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.stores[owner]; ok {
		e.lastSeen = r.now()
		return e.store
	}

	return r.loadLocked(owner).store
}

// Acquire returns the owner's store pinned until the lease is released.
// Checkout sessions and cart streams hold a lease for as long as they live.
func (r *Registry) Acquire(owner string) *Lease {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[owner]
	if !ok {
		e = r.loadLocked(owner)
	}
	e.lastSeen = r.now()
	e.pins++

	var once sync.Once
	return &Lease{
		Store: e.store,
		release: func() {
			once.Do(func() {
				r.mu.Lock()
				defer r.mu.Unlock()
				e.pins--
				e.lastSeen = r.now()
			})
		},
	}
}

func (r *Registry) loadLocked(owner string) *entry {
	store := NewStore(r.newStorage(owner), r.key, r.logger.WithField("owner", owner))
	store.Load()
	e := &entry{store: store, lastSeen: r.now()}
	r.stores[owner] = e
	return e
}

// MergeGuest moves a guest cart into the user's cart after login.
// The guest cart is cleared and dropped from the registry.
func (r *Registry) MergeGuest(sessionID, userID string) (*Store, int) {
	guest := r.Get(GuestOwner(sessionID))
	user := r.Get(UserOwner(userID))

	added := user.Merge(guest.Items())
	guest.Clear()
	r.Forget(GuestOwner(sessionID))

	return user, added
}

// Forget drops the in-memory store unless it is leased; persisted data is
// left untouched
func (r *Registry) Forget(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[owner]; ok && e.pins == 0 {
		delete(r.stores, owner)
	}
}

// Sweep drops unleased stores not touched within idle and returns how many
// were dropped
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	dropped := 0
	for owner, e := range r.stores {
		if e.pins == 0 && e.lastSeen.Before(cutoff) {
			delete(r.stores, owner)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
