package repository

import (
	"context"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListByRide(ctx context.Context, rideID string, limit int) ([]*models.ChatMessage, error)
}

type chatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = utils.GenerateID()
	}
	query := `
		INSERT INTO chat_messages (id, ride_id, sender_id, sender_role, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.RideID, msg.SenderID, msg.SenderRole, msg.Message, msg.CreatedAt)
	return err
}

// ListByRide returns the latest limit messages, oldest first.
func (r *chatRepository) ListByRide(ctx context.Context, rideID string, limit int) ([]*models.ChatMessage, error) {
	messages := []*models.ChatMessage{}
	query := `
		SELECT * FROM (
			SELECT * FROM chat_messages WHERE ride_id = $1 ORDER BY created_at DESC LIMIT $2
		) latest
		ORDER BY created_at
	`
	err := r.db.SelectContext(ctx, &messages, query, rideID, limit)
	return messages, err
}
