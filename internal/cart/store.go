package cart

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// Store owns the line items of one shopper's cart. Items are kept in order of
// first appearance and indexed by Key, so no two items can share a Key.
//
// All methods are safe for concurrent use; each one runs under the store's
// lock and completes before the next begins.
type Store struct {
	mu    sync.RWMutex
	order []Key
	items map[Key]*LineItem

	// applyMu orders Apply calls. It is always acquired before mu.
	applyMu sync.Mutex
}

func NewStore() *Store {
	return &Store{items: make(map[Key]*LineItem)}
}

// Apply runs change against the store, takes a summary of the result and
// passes it to commit before any other Apply on this store may begin. Changes
// made through Apply are therefore committed in the order they were made.
// Readers are not blocked while commit runs.
func (s *Store) Apply(change func(*Store), commit func(Summary)) Summary {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	change(s)
	summary := s.Summary()
	if commit != nil {
		commit(summary)
	}
	return summary
}

// Add puts one unit of p in the given size into the cart. An existing item
// with the same Key gets its quantity bumped and keeps its original name,
// price and image.
func (s *Store) Add(p Product, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{ProductID: p.ID, Size: size}
	if it, ok := s.items[key]; ok {
		it.Quantity++
		return
	}

	s.items[key] = &LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageURL:  p.ImageURL,
		Size:      size,
		Quantity:  1,
	}
	s.order = append(s.order, key)
}

// Remove deletes the item with the given Key. Unknown keys are ignored.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(key)
}

// RemoveProduct deletes every size of productID.
func (s *Store) RemoveProduct(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeMatching(func(k Key) bool { return k.ProductID == productID })
}

// SetQuantity sets the quantity of one item. A quantity of zero or less
// removes the item.
func (s *Store) SetQuantity(key Key, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(key)
		return
	}
	if it, ok := s.items[key]; ok {
		it.Quantity = quantity
	}
}

// SetProductQuantity sets every size of productID to the same quantity, or
// removes them all when quantity <= 0.
func (s *Store) SetProductQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeMatching(func(k Key) bool { return k.ProductID == productID })
		return
	}
	for _, k := range s.order {
		if k.ProductID == productID {
			s.items[k].Quantity = quantity
		}
	}
}

// UpdateSize moves the first item of productID (in cart order) to newSize.
// If the cart already holds productID in newSize the two items are merged:
// quantities are summed into the existing item, which keeps its place.
func (s *Store) UpdateSize(productID, newSize string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.order, func(k Key) bool { return k.ProductID == productID })
	if i < 0 {
		return
	}
	s.resize(s.order[i], newSize)
}

// ChangeSize is UpdateSize for one exact item.
func (s *Store) ChangeSize(key Key, newSize string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return
	}
	s.resize(key, newSize)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.items = make(map[Key]*LineItem)
}

// Total is the sum of unit price times quantity over all items.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.total()
}

// ItemCount is the number of units in the cart, not the number of items.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemCount()
}

// Items returns a copy of the cart's items in order of first appearance.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

func (s *Store) Get(key Key) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[key]
	if !ok {
		return LineItem{}, false
	}
	return *it, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Summary{
		Items:     s.snapshot(),
		Total:     s.total(),
		ItemCount: s.itemCount(),
	}
}

func (s *Store) remove(key Key) {
	if _, ok := s.items[key]; !ok {
		return
	}
	delete(s.items, key)
	s.order = slices.DeleteFunc(s.order, func(k Key) bool { return k == key })
}

func (s *Store) removeMatching(match func(Key) bool) {
	s.order = slices.DeleteFunc(s.order, func(k Key) bool {
		if match(k) {
			delete(s.items, k)
			return true
		}
		return false
	})
}

// resize re-keys from to its new size. Caller holds the lock and from exists.
func (s *Store) resize(from Key, newSize string) {
	if from.Size == newSize {
		return
	}
	it := s.items[from]
	to := Key{ProductID: from.ProductID, Size: newSize}

	if existing, ok := s.items[to]; ok {
		existing.Quantity += it.Quantity
		s.remove(from)
		return
	}

	delete(s.items, from)
	it.Size = newSize
	s.items[to] = it
	s.order[slices.Index(s.order, from)] = to
}

func (s *Store) snapshot() []LineItem {
	out := make([]LineItem, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.items[k])
	}
	return out
}

func (s *Store) total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) itemCount() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}
