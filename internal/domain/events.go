package domain

import "time"

// NotificationCreatedEvent is what the outbox carries to the fan-out side.
// The recipient's user group is derived from UserID.
type NotificationCreatedEvent struct {
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	OrderID        int64     `json:"order_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatBroadcast is the frame fanned out to every subscriber of a chat room.
type ChatBroadcast struct {
	User      int64     `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
