package domain

import "time"

// ChatMessage belongs to a room keyed by the order identifier. The timestamp
// is always server-assigned.
type ChatMessage struct {
	ID        int64     `db:"id"`
	Room      string    `db:"room"`
	OrderID   *int64    `db:"order_id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	Timestamp time.Time `db:"timestamp"`
}

type Notification struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	OrderID   int64     `db:"order_id"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}
