package cart

import (
	"sync"

	"homeservices-agent/internal/domain"
)

// Store is the in-process mirror of the shopping cart. It is volatile; the
// remote cart endpoint owns durability.
type Store struct {
	mu      sync.RWMutex
	items   []domain.CartItem
	pricing Pricing
}

// New returns an empty Store that quotes with pricing.
func New(pricing Pricing) *Store {
	return &Store{pricing: pricing}
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the sum of price * quantity over the current items, in cents.
func (s *Store) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return subtotal(s.items)
}

// Quote prices the current items with the store's pricing policy.
func (s *Store) Quote() Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pricing.Quote(subtotal(s.items))
}

// SetCart replaces every item, typically with the remote cart. Repeated
// service ids are merged by adding their quantities and non-positive
// quantities are dropped.
func (s *Store) SetCart(items []domain.CartItem) {
	next := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		item = normalize(item)
		if idx := indexOf(next, item.ServiceID); idx >= 0 {
			next[idx].Quantity = min(next[idx].Quantity+item.Quantity, domain.MaxQuantity)
			continue
		}
		next = append(next, item)
	}

	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
}

// AddItem bumps the quantity of an existing line by one, ignoring the
// incoming quantity, or appends item as a new line. Quantities stop at
// domain.MaxQuantity.
func (s *Store) AddItem(item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := indexOf(s.items, item.ServiceID); idx >= 0 {
		if s.items[idx].Quantity < domain.MaxQuantity {
			s.items[idx].Quantity++
		}
		return
	}
	item = normalize(item)
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.items = append(s.items, item)
}

// UpdateQuantity sets the quantity of serviceID. A quantity <= 0 removes the
// line and larger values are capped at domain.MaxQuantity. Unknown ids are
// ignored.
func (s *Store) UpdateQuantity(serviceID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, serviceID)
	if idx < 0 {
		return
	}
	if quantity <= 0 {
		s.removeAt(idx)
		return
	}
	s.items[idx].Quantity = min(quantity, domain.MaxQuantity)
}

// RemoveItem deletes serviceID if present.
func (s *Store) RemoveItem(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := indexOf(s.items, serviceID); idx >= 0 {
		s.removeAt(idx)
	}
}

// ClearCart empties the cart, e.g. after checkout.
func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

func (s *Store) removeAt(idx int) {
	next := make([]domain.CartItem, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	s.items = append(next, s.items[idx+1:]...)
}

func indexOf(items []domain.CartItem, serviceID string) int {
	for i := range items {
		if items[i].ServiceID == serviceID {
			return i
		}
	}
	return -1
}

func normalize(item domain.CartItem) domain.CartItem {
	item.PriceCents = min(max(item.PriceCents, 0), domain.MaxPriceCents)
	item.Quantity = min(item.Quantity, domain.MaxQuantity)
	return item
}

func subtotal(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total = domain.AddCents(total, item.LineTotalCents())
	}
	return total
}
