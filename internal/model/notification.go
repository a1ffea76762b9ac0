// internal/model/notification.go
package model

import "time"

const (
	// NotificationNewMessage asks administrators to review a fresh submission.
	NotificationNewMessage = "new_message"
	// NotificationEditedMessage asks administrators to re-review an edited message.
	NotificationEditedMessage = "edited_message"
)

// AdminNotification is the queue payload for administrator mail.
type AdminNotification struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	MessageID   int       `json:"message_id"`
	Username    string    `json:"username"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content"`
	ReviewURL   string    `json:"review_url"`
	RequestedAt time.Time `json:"requested_at"`
}

// Email is one outbound mail, independent of the transport.
type Email struct {
	To      []string
	Subject string
	Body    string
}
