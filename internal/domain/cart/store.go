// internal/domain/cart/store.go
package cart

import (
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Observer is called with the cart state after every mutation, in mutation order.
// Observers must not call back into the store; everything they need is in the snapshot.
type Observer func(Snapshot)

// Store is the single source of truth for one shopper's cart
type Store struct {
	mu      sync.RWMutex
	items   []CartItem
	storage Storage
	key     string
	logger  logrus.FieldLogger

	// notifyMu serializes observer delivery so snapshots arrive in mutation order
	notifyMu  sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// NewStore creates an empty store backed by storage. Call Load to restore persisted state.
func NewStore(storage Storage, key string, logger logrus.FieldLogger) *Store {
	if key == "" {
		key = DefaultStorageKey
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		items:     []CartItem{},
		storage:   storage,
		key:       key,
		logger:    logger.WithField("cart_key", key),
		observers: make(map[int]Observer),
	}
}

// Load replaces the in-memory cart with the persisted one.
// Absent or malformed data yields an empty cart; Load never fails.
func (s *Store) Load() {
	items := s.read()

	s.mu.Lock()
	s.items = items
	snap := newSnapshot(s.items)
	s.notify(snap)
}

func (s *Store) read() []CartItem {
	raw, ok, err := s.storage.Get(s.key)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read persisted cart, starting empty")
		return []CartItem{}
	}
	if !ok || raw == "" {
		return []CartItem{}
	}

	var decoded []CartItem
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logger.WithError(err).Warn("Persisted cart is corrupted, starting empty")
		if err := s.storage.Remove(s.key); err != nil {
			s.logger.WithError(err).Warn("Failed to remove corrupted cart")
		}
		return []CartItem{}
	}

	items := make([]CartItem, 0, len(decoded))
	seen := make(map[int64]struct{}, len(decoded))
	for _, item := range decoded {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items
}

// Add inserts item unless a course with the same id is already present.
// It reports whether the cart changed; false means "already in cart".
func (s *Store) Add(item CartItem) bool {
	s.mu.Lock()
	if s.indexOf(item.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items, item)
	s.commit()
	return true
}

// Remove deletes the course with the given id. Absent ids are a no-op.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	items := make([]CartItem, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	s.items = items
	s.commit()
	return true
}

// Clear empties the cart and persists the empty state
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = []CartItem{}
	s.commit()
}

// Merge adds every item not already present and reports how many were added
func (s *Store) Merge(items []CartItem) int {
	s.mu.Lock()
	added := 0
	for _, item := range items {
		if s.indexOf(item.ID) >= 0 {
			continue
		}
		s.items = append(s.items, item)
		added++
	}
	if added == 0 {
		s.mu.Unlock()
		return 0
	}
	s.commit()
	return added
}

func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Total sums the item prices. An empty cart totals zero.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sum(s.items)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the cart contents in insertion order
func (s *Store) Items() []CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newSnapshot(s.items)
}

// Subscribe registers fn for change notifications and returns its cancel func
func (s *Store) Subscribe(fn Observer) func() {
	s.notifyMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

func (s *Store) indexOf(id int64) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// commit persists the current items and notifies observers. Caller holds s.mu;
// commit releases it.
func (s *Store) commit() {
	s.persist()
	snap := newSnapshot(s.items)
	s.notify(snap)
}

// notify hands off from s.mu to notifyMu before calling observers.
// Caller holds s.mu; notify releases it.
func (s *Store) notify(snap Snapshot) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range s.observers {
		fn(snap)
	}
}

func (s *Store) persist() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.WithError(err).Error("Failed to serialize cart")
		return
	}
	if err := s.storage.Set(s.key, string(data)); err != nil {
		s.logger.WithError(err).Error("Failed to persist cart")
	}
}
