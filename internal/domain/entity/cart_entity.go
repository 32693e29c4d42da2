package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem references a product with populated display fields.
// Populated fields reflect the product at the time the cart was read.
type CartItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Images    []string        `json:"images"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"isActive"`
}

// Cart is the per-user shopping cart. One cart per user.
type Cart struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"userId"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// EmptyCart is the synthesized cart returned when a user has none stored.
func EmptyCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}, TotalAmount: decimal.Zero}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Remove drops the item for productID. It reports whether anything changed.
func (c *Cart) Remove(productID string) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalAmount = decimal.Zero
}

// Reprice refreshes populated fields from current products and recomputes the total.
// Items whose product is missing from current keep their last known price.
func (c *Cart) Reprice(current map[string]*Product) {
	total := decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		if p, ok := current[it.ProductID]; ok {
			it.Name = p.Name
			it.Price = p.Price
			it.Images = p.Images
			it.Stock = p.Stock
			it.IsActive = p.IsActive
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.TotalAmount = total
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
