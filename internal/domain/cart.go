package domain

import "time"

// CartTTL is how long a cart without an order reference survives untouched
// before an opportunistic sweep removes it.
const CartTTL = 24 * time.Hour

// Cart is addressable by a session token until checkout converts it, after
// which it belongs to exactly one order. The two references are mutually
// exclusive.
type Cart struct {
	ID         int64      `db:"id"`
	SessionID  *string    `db:"session_id"`
	OrderID    *int64     `db:"order_id"`
	TotalPrice int64      `db:"total_price"`
	Items      []CartItem `db:"items"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CartItem carries a price snapshot captured when the item was added. The
// snapshot never changes, even if the product is repriced later.
type CartItem struct {
	ID        int64  `db:"id"`
	CartID    int64  `db:"cart_id"`
	ProductID int64  `db:"product_id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Quantity  int32  `db:"quantity"`
}

func (c *Cart) CalculateTotal() {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	c.TotalPrice = total
}

// Stale reports whether the cart is eligible for the opportunistic sweep.
// Carts already converted to an order are never swept.
func (c *Cart) Stale(now time.Time) bool {
	return c.OrderID == nil && now.Sub(c.UpdatedAt) > CartTTL
}
