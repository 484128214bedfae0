// internal/domain/cart/service.go
package cart

import (
	"sync"
)

// MaxQuantity is the most units of one item a cart holds
const MaxQuantity = 99

// Cart holds the items selected in one shopping session. Totals are derived
// on every read and pushed to subscribers after every mutation.
type Cart struct {
	mu          sync.RWMutex
	items       []CartItem
	shippingFee int64

	observersMu sync.Mutex
	observers   map[int]func(CartTotals)
	nextID      int
}

// NewCart creates an empty cart charging the given flat shipping fee (centavos)
func NewCart(shippingFee int64) *Cart {
	return &Cart{
		items:       []CartItem{},
		shippingFee: shippingFee,
		observers:   make(map[int]func(CartTotals)),
	}
}

// AddItem inserts the item with quantity 1, or increments the quantity when
// an item with the same id is already in the cart. An item already at
// MaxQuantity is left as is.
func (c *Cart) AddItem(item CartItem) {
	c.mu.Lock()
	changed := true
	if idx := c.indexOf(item.ID); idx >= 0 {
		if c.items[idx].Quantity < MaxQuantity {
			c.items[idx].Quantity++
		} else {
			changed = false
		}
	} else {
		item.Quantity = 1
		c.items = append(c.items, item)
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// RemoveItem deletes the matching entry; no-op if absent
func (c *Cart) RemoveItem(id string) {
	c.mu.Lock()
	removed := c.removeLocked(id)
	c.mu.Unlock()

	if removed {
		c.notify()
	}
}

// SetQuantity sets the quantity exactly; anything below 1 removes the item
// and anything above MaxQuantity is capped.
func (c *Cart) SetQuantity(id string, qty int) {
	if qty < 1 {
		c.RemoveItem(id)
		return
	}
	if qty > MaxQuantity {
		qty = MaxQuantity
	}

	c.mu.Lock()
	idx := c.indexOf(id)
	if idx >= 0 {
		c.items[idx].Quantity = qty
	}
	c.mu.Unlock()

	if idx >= 0 {
		c.notify()
	}
}

// Increment adds one unit of an item already in the cart, up to MaxQuantity
func (c *Cart) Increment(id string) {
	c.adjust(id, 1)
}

// Decrement removes one unit; the item is dropped when it would reach zero
func (c *Cart) Decrement(id string) {
	c.adjust(id, -1)
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = []CartItem{}
	c.mu.Unlock()

	c.notify()
}

// Items returns a copy of the cart contents
func (c *Cart) Items() []CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the item with the given id
func (c *Cart) Get(id string) (CartItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx := c.indexOf(id); idx >= 0 {
		return c.items[idx], true
	}
	return CartItem{}, false
}

// Count returns the total quantity across all items
func (c *Cart) Count() int {
	return c.Totals().TotalQuantity
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

// Totals computes subtotal, shipping and total from the current items
func (c *Cart) Totals() CartTotals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calculateTotals()
}

// Snapshot returns the items for persistence
func (c *Cart) Snapshot() []CartItem {
	return c.Items()
}

// Restore replaces the contents with previously persisted items. Entries
// with a non-positive quantity are dropped and duplicate ids are merged.
func (c *Cart) Restore(items []CartItem) {
	c.mu.Lock()
	c.items = make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if item.Quantity > MaxQuantity {
			item.Quantity = MaxQuantity
		}
		if idx := c.indexOf(item.ID); idx >= 0 {
			c.items[idx].Quantity = min(c.items[idx].Quantity+item.Quantity, MaxQuantity)
			continue
		}
		c.items = append(c.items, item)
	}
	c.mu.Unlock()

	c.notify()
}

// Subscribe registers an observer of totals changes and returns a function
// that removes it.
func (c *Cart) Subscribe(fn func(CartTotals)) func() {
	c.observersMu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.observersMu.Unlock()

	return func() {
		c.observersMu.Lock()
		delete(c.observers, id)
		c.observersMu.Unlock()
	}
}

// Private helper methods

func (c *Cart) notify() {
	totals := c.Totals()

	c.observersMu.Lock()
	observers := make([]func(CartTotals), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.observersMu.Unlock()

	for _, fn := range observers {
		fn(totals)
	}
}

func (c *Cart) adjust(id string, delta int) {
	c.mu.Lock()
	changed := false
	if idx := c.indexOf(id); idx >= 0 {
		qty := c.items[idx].Quantity + delta
		switch {
		case qty < 1:
			c.removeLocked(id)
			changed = true
		case qty > MaxQuantity:
		default:
			c.items[idx].Quantity = qty
			changed = true
		}
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Cart) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(id string) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return true
}

func (c *Cart) calculateTotals() CartTotals {
	var totals CartTotals

	totals.ItemCount = len(c.items)

	for _, item := range c.items {
		totals.TotalQuantity += item.Quantity
		totals.SubTotal += item.Subtotal()
	}

	if totals.ItemCount > 0 {
		totals.ShippingCost = c.shippingFee
	}
	totals.TotalAmount = totals.SubTotal + totals.ShippingCost

	return totals
}
