package models

import "time"

const MaxChatMessageLength = 1000

// ChatMessage is one line of the conversation between a ride's rider and driver.
type ChatMessage struct {
	ID         string    `db:"id" json:"id"`
	RideID     string    `db:"ride_id" json:"ride_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	SenderRole Role      `db:"sender_role" json:"sender"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"timestamp"`
}

type SendChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

type ChatHistoryResponse struct {
	RideID        string         `json:"ride_id"`
	Messages      []*ChatMessage `json:"messages"`
	TotalMessages int            `json:"total_messages"`
}
