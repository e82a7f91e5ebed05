package models

import (
	"encoding/json"
	"time"
)

// Notification types
const (
	NotificationRideUpdate = "ride_update"
	NotificationPayment    = "payment"
)

type Notification struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type MarkNotificationsReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}
