package cart

import "MiniCart/internal/catalog"

// Cart is the ordered set of products the shopper picked. An id appears
// at most once; entries keep insertion order.
type Cart struct {
	entries []catalog.Product
}

func New(entries []catalog.Product) *Cart {
	c := &Cart{}
	for _, e := range entries {
		if !c.Contains(e.ID) {
			c.entries = append(c.entries, e)
		}
	}
	return c
}

func (c *Cart) Len() int { return len(c.entries) }

func (c *Cart) Contains(id int) bool {
	return c.index(id) >= 0
}

// Entries returns a copy of the cart contents.
func (c *Cart) Entries() []catalog.Product {
	out := make([]catalog.Product, len(c.entries))
	copy(out, c.entries)
	return out
}

// Toggle adds p when its id is absent and removes the matching entry when
// present. It reports whether p was added.
func (c *Cart) Toggle(p catalog.Product) bool {
	if i := c.index(p.ID); i >= 0 {
		c.removeAt(i)
		return false
	}
	c.entries = append(c.entries, p)
	return true
}

// Remove drops the entry with the given id and reports whether one existed.
func (c *Cart) Remove(id int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Total sums entry prices.
func (c *Cart) Total() float64 {
	var sum float64
	for _, e := range c.entries {
		sum += e.Price
	}
	return sum
}

func (c *Cart) index(id int) int {
	for i, e := range c.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
}
