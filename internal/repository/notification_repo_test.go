package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestMarkReadScopesToOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)
	ids := []string{"n1", "n2"}

	mock.ExpectExec(q("UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND id = ANY($2)")).
		WithArgs("user-1", pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkRead(context.Background(), "user-1", ids)
	if err != nil || n != 2 {
		t.Fatalf("MarkRead() = %d, %v; want 2", n, err)
	}
}
