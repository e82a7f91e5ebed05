package repository

import (
	"context"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = utils.GenerateID()
	}
	data := "{}"
	if len(n.Data) > 0 {
		data = string(n.Data)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, data, n.IsRead, n.CreatedAt)
	return err
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	notifications := []*models.Notification{}
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit)
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// MarkRead only touches notifications owned by userID.
func (r *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND id = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
