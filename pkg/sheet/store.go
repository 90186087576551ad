package sheet

import (
	"sync"

	"github.com/matzehuels/gangsheet/pkg/errors"
)

// Store is the canonical ordered collection of placed items.
//
// Identity is a monotonically increasing counter: ids are unique for the
// lifetime of the canvas session and never reused, even after deletion.
// Store order is layout order; the layout engine never reorders items
// itself, only explicit drag-reordering does.
//
// Mutations are serialized by a mutex so background completions (image
// decode, crop) can apply results without racing the interaction loop.
// Every mutating method runs its change atomically from the perspective of
// observers and fires the change callback once afterwards.
type Store struct {
	mu       sync.Mutex
	items    []Item
	counter  int
	onChange func()
}

// NewStore creates an empty item store.
func NewStore() *Store {
	return &Store{}
}

// SetOnChange registers a callback invoked after every mutation.
// The callback runs outside the store lock.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// NextID reserves and returns a fresh item id.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter
}

// Counter returns the current id counter value.
func (s *Store) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a copy of the item list in store order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id.
func (s *Store) Get(id int) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

// IndexOf returns the store-order index of the item, or -1.
func (s *Store) IndexOf(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id)
}

// Add appends an item, assigning it a fresh id if it has none.
// Returns the stored item with its final id.
func (s *Store) Add(it Item) Item {
	s.mu.Lock()
	if it.ID == 0 {
		s.counter++
		it.ID = s.counter
	} else if it.ID > s.counter {
		s.counter = it.ID
	}
	it.clamp()
	s.items = append(s.items, it)
	s.mu.Unlock()
	s.notify()
	return it
}

// AddBatch appends several items atomically.
func (s *Store) AddBatch(items []Item) []Item {
	s.mu.Lock()
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID == 0 {
			s.counter++
			it.ID = s.counter
		} else if it.ID > s.counter {
			s.counter = it.ID
		}
		it.clamp()
		s.items = append(s.items, it)
		out = append(out, it)
	}
	s.mu.Unlock()
	s.notify()
	return out
}

// Update applies fn to the item with the given id. The dimensional floors
// are re-enforced afterwards. Updating a deleted item is a no-op so stale
// background completions land harmlessly.
func (s *Store) Update(id int, fn func(*Item)) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	fn(&s.items[i])
	s.items[i].ID = id // identity is not mutable
	s.items[i].clamp()
	s.mu.Unlock()
	s.notify()
	return true
}

// UpdateAll applies fn to every item in store order.
func (s *Store) UpdateAll(fn func(*Item)) {
	s.mu.Lock()
	for i := range s.items {
		id := s.items[i].ID
		fn(&s.items[i])
		s.items[i].ID = id
		s.items[i].clamp()
	}
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the items with the given ids. Unknown ids are ignored.
func (s *Store) Remove(ids ...int) {
	s.mu.Lock()
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()
	s.notify()
}

// Replace removes the items with the given ids and appends replacements in
// a single atomic step. Used by merge and ungroup, where observers must
// never see the intermediate state.
func (s *Store) Replace(removeIDs []int, add []Item) []Item {
	s.mu.Lock()
	drop := make(map[int]bool, len(removeIDs))
	for _, id := range removeIDs {
		drop[id] = true
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	s.items = kept
	out := make([]Item, 0, len(add))
	for _, it := range add {
		if it.ID == 0 {
			s.counter++
			it.ID = s.counter
		} else if it.ID > s.counter {
			s.counter = it.ID
		}
		it.clamp()
		s.items = append(s.items, it)
		out = append(out, it)
	}
	s.mu.Unlock()
	s.notify()
	return out
}

// MoveTo splices the item with the given id to a new store-order index.
// Every other item whose index changes as a result is marked Displaced so
// the layout engine resettles it. The moved item's settlement is untouched:
// during a drag it simply follows the pointer.
func (s *Store) MoveTo(id, index int) bool {
	s.mu.Lock()
	from := s.indexOf(id)
	if from < 0 {
		s.mu.Unlock()
		return false
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.items)-1 {
		index = len(s.items) - 1
	}
	if index == from {
		s.mu.Unlock()
		return false
	}

	before := make(map[int]int, len(s.items))
	for i, it := range s.items {
		before[it.ID] = i
	}

	moved := s.items[from]
	s.items = append(s.items[:from], s.items[from+1:]...)
	s.items = append(s.items[:index], append([]Item{moved}, s.items[index:]...)...)

	for i := range s.items {
		if s.items[i].ID != id && before[s.items[i].ID] != i {
			s.items[i].Settlement = Displaced
		}
	}
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyPositions writes layout-computed positions back to the store.
// Items not present in the map are untouched. Returns true if any position
// actually changed beyond tolerance, which the caller uses to avoid reflow
// loops.
func (s *Store) ApplyPositions(pos map[int][2]float64, tolerance float64) bool {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		p, ok := pos[s.items[i].ID]
		if !ok {
			continue
		}
		if abs(p[0]-s.items[i].PosX) > tolerance || abs(p[1]-s.items[i].PosY) > tolerance {
			s.items[i].PosX = p[0]
			s.items[i].PosY = p[1]
			changed = true
		}
		s.items[i].Settlement = Settled
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return changed
}

// HasDisplaced reports whether any item is marked Displaced.
func (s *Store) HasDisplaced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Settlement == Displaced {
			return true
		}
	}
	return false
}

// Validate checks the store invariants: id uniqueness and dimensional
// floors. It is primarily a test and import-time guard.
func (s *Store) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int]bool, len(s.items))
	for _, it := range s.items {
		if seen[it.ID] {
			return errors.New(errors.ErrCodeInvalidSnapshot, "duplicate item id %d", it.ID)
		}
		seen[it.ID] = true
		if it.ID > s.counter {
			return errors.New(errors.ErrCodeInvalidSnapshot, "item id %d exceeds counter %d", it.ID, s.counter)
		}
		if it.WidthIn < MinSizeIn || it.HeightIn < MinSizeIn {
			return errors.New(errors.ErrCodeInvalidSnapshot, "item %d below minimum size", it.ID)
		}
		if it.Copies < MinCopies {
			return errors.New(errors.ErrCodeInvalidSnapshot, "item %d has %d copies", it.ID, it.Copies)
		}
	}
	return nil
}

func (s *Store) indexOf(id int) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
