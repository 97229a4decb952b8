// Package cart holds the per-session shopping cart.
package cart

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"shopapp/internal/domain"
)

// Cart is the surface views and services depend on.
type Cart interface {
	Items() []Item
	AddItem(p domain.Product)
	RemoveItem(productID int)
	UpdateQuantity(productID, quantity int)
	Quantity(productID int) int
	ClearCart()
	Total() decimal.Decimal
}

type Item struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
	OpClear  Op = "clear"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// Event describes one state change. Items is a copy taken after the change.
type Event struct {
	Op        Op
	ProductID int
	Items     []Item
}

// Store keeps items in insertion order with at most one item per product id.
// The zero value is an empty cart ready for use.
type Store struct {
	mu    sync.Mutex
	items []Item
	seq   uint64 // last change, guarded by mu

	subMu     sync.Mutex
	turn      sync.Cond // L is subMu
	delivered uint64
	subs      []subscriber
	nextSub   int
}

type subscriber struct {
	id int
	fn func(Event)
}

var _ Cart = (*Store)(nil)

func NewStore() *Store { return &Store{} }

// Items returns a copy of the current items.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AddItem increments the quantity of an existing item or appends a new one
// with quantity 1. A line already at MaxQuantity is left as is.
func (s *Store) AddItem(p domain.Product) {
	s.mu.Lock()
	if i := s.indexLocked(p.ID); i >= 0 {
		if s.items[i].Quantity >= MaxQuantity {
			s.mu.Unlock()
			return
		}
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, Item{Product: p, Quantity: 1})
	}
	seq, snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(seq, Event{Op: OpAdd, ProductID: p.ID, Items: snap})
}

// Quantity returns the quantity held for productID, 0 when absent.
func (s *Store) Quantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// RemoveItem deletes the item for productID. Unknown ids are ignored.
func (s *Store) RemoveItem(productID int) {
	s.mu.Lock()
	i := s.indexLocked(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	seq, snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(seq, Event{Op: OpRemove, ProductID: productID, Items: snap})
}

// UpdateQuantity sets the quantity for productID, capped at MaxQuantity.
// Quantities below 1 and unknown ids leave the cart untouched; removal goes
// through RemoveItem.
func (s *Store) UpdateQuantity(productID, quantity int) {
	if quantity < 1 {
		return
	}
	quantity = min(quantity, MaxQuantity)
	s.mu.Lock()
	i := s.indexLocked(productID)
	if i < 0 || s.items[i].Quantity == quantity {
		s.mu.Unlock()
		return
	}
	s.items[i].Quantity = quantity
	seq, snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(seq, Event{Op: OpUpdate, ProductID: productID, Items: snap})
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	seq, _ := s.changedLocked()
	s.mu.Unlock()

	s.notify(seq, Event{Op: OpClear})
}

// Total is recomputed from the current items on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ItemCount is the sum of all quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Len is the number of distinct products.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn for every subsequent change. Subscribers run in
// registration order on the mutating goroutine after the store lock is
// released, and events reach them in the order the changes happened. fn may
// read the store but must not modify it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
			s.subMu.Unlock()
		})
	}
}

// changedLocked numbers a change and snapshots the items after it.
func (s *Store) changedLocked() (uint64, []Item) {
	s.seq++
	return s.seq, s.snapshotLocked()
}

// notify delivers change seq once every earlier change has been delivered.
func (s *Store) notify(seq uint64, e Event) {
	s.subMu.Lock()
	if s.turn.L == nil {
		s.turn.L = &s.subMu
	}
	for s.delivered != seq-1 {
		s.turn.Wait()
	}
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		s.delivered = seq
		s.turn.Broadcast()
		s.subMu.Unlock()
	}()
	for _, sub := range subs {
		sub.fn(e)
	}
}

func (s *Store) indexLocked(productID int) int {
	for i, it := range s.items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}
