// Package ingest turns Gmail push notifications into workflow runs:
// decode the Pub/Sub payload, diff mailbox history since the stored
// cursor, filter candidates and feed each surviving message to the
// agent.
package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Notification is the decoded Gmail push payload.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// DecodeNotification parses the base64-encoded JSON data field of a
// Pub/Sub push message.
func DecodeNotification(data string) (Notification, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return Notification{}, fmt.Errorf("base64 decode failed: %w", err)
		}
	}

	var n Notification
	if err := json.Unmarshal(decoded, &n); err != nil {
		return Notification{}, fmt.Errorf("unmarshal notification failed: %w", err)
	}

	return n, nil
}
