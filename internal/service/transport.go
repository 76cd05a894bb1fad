package service

import (
	"context"
	"fmt"
)

// Transport delivers a payload to every connection currently enrolled in a
// named group. A single-process deployment backs it with the in-memory hub;
// a multi-process one bridges through an external broker. Callers must not
// assume either.
type Transport interface {
	Publish(ctx context.Context, groupKey string, payload []byte) error
}

func UserGroup(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func ChatGroup(room string) string {
	return "chat:" + room
}
