// Package cart holds the shopping cart aggregate and its Redis-backed stores.
package cart

import (
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Line is one product in a cart with the price captured when it was added.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal returns unit price × quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the set of lines a shopper intends to buy. A product appears at
// most once.
type Cart struct {
	Owner     string    `json:"owner"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserOwner is the cart owner key for an authenticated user.
func UserOwner(userID string) string {
	return "user:" + userID
}

// GuestOwner is the cart owner key for an anonymous session.
func GuestOwner(sessionID string) string {
	return "guest:" + sessionID
}

// New returns an empty cart for owner.
func New(owner string) *Cart {
	return &Cart{Owner: owner, Lines: []Line{}}
}

// Add puts line in the cart, adding to the quantity if the product is
// already present. The existing price snapshot is kept in that case.
func (c *Cart) Add(line Line) error {
	if line.Quantity < 1 {
		return model.ErrInvalidQuantity
	}

	if i := c.index(line.ProductID); i >= 0 {
		c.Lines[i].Quantity += line.Quantity
		return nil
	}

	c.Lines = append(c.Lines, line)
	return nil
}

// UpdateQuantity sets the quantity of an existing line.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}

	i := c.index(productID)
	if i < 0 {
		return model.ErrCartLineMissing
	}

	c.Lines[i].Quantity = quantity
	return nil
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID string) error {
	i := c.index(productID)
	if i < 0 {
		return model.ErrCartLineMissing
	}

	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// Merge folds other's lines into c.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}
	for _, line := range other.Lines {
		if line.Quantity < 1 {
			continue
		}
		_ = c.Add(line)
	}
}

// Subtract takes the ordered quantities out of the cart. Lines that reach
// zero are dropped; anything added after the order was priced stays.
func (c *Cart) Subtract(items []model.OrderLineSnapshot) {
	for _, item := range items {
		i := c.index(item.ProductID)
		if i < 0 {
			continue
		}
		c.Lines[i].Quantity -= item.Quantity
		if c.Lines[i].Quantity < 1 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
	}
}

// Subtotal is the exact sum of unit price × quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// ItemCount is the total number of units in the cart.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Snapshot copies the lines into order line snapshots.
func (c *Cart) Snapshot() []model.OrderLineSnapshot {
	items := make([]model.OrderLineSnapshot, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, model.OrderLineSnapshot{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.UnitPrice,
			Quantity:  line.Quantity,
			Image:     line.Image,
		})
	}
	return items
}

func (c *Cart) index(productID string) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
