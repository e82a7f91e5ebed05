package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aditya/rideshare/internal/models"
)

func TestExpireOverdue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRideRequestRepository(db)
	now := time.Now()

	mock.ExpectExec(q("UPDATE ride_requests SET status = $1 WHERE status = $2 AND expires_at <= $3")).
		WithArgs(models.RequestStatusExpired, models.RequestStatusPending, now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireOverdue(context.Background(), now)
	if err != nil || n != 3 {
		t.Fatalf("ExpireOverdue() = %d, %v; want 3", n, err)
	}
}

func TestCancelRequestOnlyOwnerPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRideRequestRepository(db)

	mock.ExpectQuery(q("WHERE id = $2 AND rider_id = $3 AND status = $4")).
		WithArgs(models.RequestStatusCancelled, "req-1", "rider-2", models.RequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req, err := repo.Cancel(context.Background(), "req-1", "rider-2")
	if err != nil || req != nil {
		t.Fatalf("Cancel() = %v, %v; want nil, nil", req, err)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRideRequestRepository(db)

	mock.ExpectQuery(q("SELECT * FROM ride_requests WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req, err := repo.GetByID(context.Background(), "missing")
	if err != nil || req != nil {
		t.Fatalf("GetByID() = %v, %v; want nil, nil", req, err)
	}
}
