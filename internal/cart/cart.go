// Package cart keeps the shopper's in-session basket. Carts are never persisted.
package cart

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ummitifli/storefront/internal/domain"
)

// ErrOutOfStock is returned when adding a product that is not in stock.
var ErrOutOfStock = errors.New("product is out of stock")

// Item is one cart line. Product is the copy taken when it was first added,
// later catalog edits do not reach it.
type Item struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Subtotal is price times quantity.
func (i Item) Subtotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}

// Cart is an insertion-ordered set of lines keyed by product id.
type Cart struct {
	mu      sync.Mutex
	items   []Item
	touched time.Time
	now     func() time.Time
}

// New returns an empty cart.
func New() *Cart {
	return newCart(time.Now)
}

func newCart(now func() time.Time) *Cart {
	return &Cart{now: now, touched: now()}
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add increments the line for p, appending a new line at quantity 1 when absent.
func (c *Cart) Add(p domain.Product) error {
	if !p.InStock {
		return ErrOutOfStock
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()
	if i := c.indexOf(p.ID); i >= 0 {
		c.items[i].Quantity++
		return nil
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
	return nil
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line,
// an unknown id is ignored.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()
	if i := c.indexOf(productID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.touched = c.now()
	c.mu.Unlock()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Quantity returns the quantity held for productID, 0 when absent.
func (c *Cart) Quantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// TotalCount sums the quantities.
func (c *Cart) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice sums the line subtotals rounded to two decimals.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, it := range c.items {
		sum += it.Subtotal()
	}
	return math.Round(sum*100) / 100
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *Cart) lastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}
