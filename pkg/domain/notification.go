package domain

import (
	"fmt"
	"time"
)

// Notification types emitted by the backend.
const (
	NotifNewApplication      = "new_application"
	NotifApplicationAccepted = "application_accepted"
	NotifApplicationRejected = "application_rejected"
)

// NotificationPayload carries type-specific notification data.
type NotificationPayload struct {
	RequestID     int64  `json:"request_id,omitempty"`
	RequestTitle  string `json:"request_title,omitempty"`
	ApplicationID int64  `json:"application_id,omitempty"`
	ProviderName  string `json:"provider_name,omitempty"`
}

// Notification is a single in-app notification.
type Notification struct {
	ID        int64               `json:"id"`
	Type      string              `json:"type"`
	Payload   NotificationPayload `json:"payload"`
	ReadAt    *time.Time          `json:"read_at"`
	CreatedAt time.Time           `json:"created_at"`
}

// Unread reports whether the notification has not been read yet.
func (n Notification) Unread() bool { return n.ReadAt == nil }

// Text renders a one-line description of the notification.
func (n Notification) Text() string {
	switch n.Type {
	case NotifNewApplication:
		return fmt.Sprintf("New application received for %q from %s", n.Payload.RequestTitle, n.Payload.ProviderName)
	case NotifApplicationAccepted:
		return fmt.Sprintf("Your application for %q has been accepted", n.Payload.RequestTitle)
	case NotifApplicationRejected:
		return fmt.Sprintf("Your application for %q has been rejected", n.Payload.RequestTitle)
	default:
		return "New notification"
	}
}

// CountUnread returns how many notifications are unread.
func CountUnread(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if x.Unread() {
			n++
		}
	}
	return n
}
