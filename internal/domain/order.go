package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusSuspended      OrderStatus = "suspended"
	OrderStatusResumed        OrderStatus = "resumed"
)

type PaymentType string

const (
	PaymentTypeCard   PaymentType = "card"
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeOnline PaymentType = "online"
)

type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

// ArchiveAfter is the window after the last update in which a terminal order
// stays active before the lazy archival check retires it.
const ArchiveAfter = 24 * time.Hour

// transitions is the order state machine. Suspension is an administrative
// side branch: a resumed order continues from the confirmed flow.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusSuspended},
	OrderStatusConfirmed:      {OrderStatusShipped, OrderStatusReadyForPickup, OrderStatusCancelled, OrderStatusSuspended},
	OrderStatusShipped:        {OrderStatusDelivered, OrderStatusCancelled, OrderStatusSuspended},
	OrderStatusReadyForPickup: {OrderStatusPickedUp, OrderStatusCancelled, OrderStatusSuspended},
	OrderStatusSuspended:      {OrderStatusResumed, OrderStatusCancelled},
	OrderStatusResumed:        {OrderStatusConfirmed, OrderStatusShipped, OrderStatusReadyForPickup, OrderStatusCancelled, OrderStatusSuspended},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusReadyForPickup, OrderStatusDelivered, OrderStatusPickedUp,
		OrderStatusCancelled, OrderStatusSuspended, OrderStatusResumed:
		return OrderStatus(s), nil
	}
	return "", NewValidationError(RuleInvalidStatusTransition, "unknown order status: "+s)
}

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusPickedUp, OrderStatusCancelled:
		return true
	}
	return false
}

// Administrative reports whether the transition target is reserved for
// administrators rather than the restaurant owner.
func (s OrderStatus) Administrative() bool {
	return s == OrderStatusSuspended || s == OrderStatusResumed
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID           int64        `db:"id"`
	UserID       int64        `db:"user_id"`
	RestaurantID int64        `db:"restaurant_id"`
	AddressID    int64        `db:"address_id"`
	CartID       int64        `db:"cart_id"`
	PaymentType  PaymentType  `db:"payment_type"`
	DeliveryType DeliveryType `db:"delivery_type"`
	Status       OrderStatus  `db:"status"`
	IsPaid       bool         `db:"is_paid"`
	Archived     bool         `db:"archived"`
	OrderNotes   string       `db:"order_notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	History []OrderHistory `db:"history"`
}

// OrderHistory is the append-only audit trail. Entries mirror every status
// the order has held, starting with the creation entry.
type OrderHistory struct {
	ID          int64       `db:"id"`
	OrderID     int64       `db:"order_id"`
	Status      OrderStatus `db:"status"`
	Timestamp   time.Time   `db:"timestamp"`
	Description string      `db:"description"`
}

// ShouldArchive is the pure lazy-archival predicate, evaluated at the top of
// every mutating and most read operations. The flag write itself goes through
// the same single-writer path as status mutations.
func ShouldArchive(o *Order, now time.Time) bool {
	return !o.Archived && o.Status.Terminal() && now.Sub(o.UpdatedAt) > ArchiveAfter
}

// IsParty reports whether the identity is the buyer side of the order. The
// restaurant side is checked against the restaurant owner, which requires a
// catalog lookup and therefore lives in the service layer.
func (o *Order) IsBuyer(identity Identity) bool {
	return identity.UserID == o.UserID
}
