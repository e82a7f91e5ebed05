package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/lib/pq"
)

func TestCreateUserDuplicatePhoneIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_key"})

	err := repo.Create(context.Background(), &models.User{Phone: "9800000001", Name: "Sita", UserType: models.RoleRider})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("Create() error = %v, want conflict", err)
	}
}

func TestCreateUserPassesOtherErrorsThrough(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	boom := &pq.Error{Code: "53300"}

	mock.ExpectExec(q("INSERT INTO users")).WillReturnError(boom)

	err := repo.Create(context.Background(), &models.User{Phone: "9800000001", Name: "Sita", UserType: models.RoleRider})
	if errors.Is(err, apperrors.ErrConflict) || !errors.Is(err, boom) {
		t.Fatalf("Create() error = %v, want %v", err, boom)
	}
}

func TestCreateUserAssignsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(q("INSERT INTO users")).WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Phone: "9800000001", Name: "Sita", UserType: models.RoleRider}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if user.ID == "" || !user.IsActive || !user.WalletBalance.IsZero() {
		t.Errorf("user = %+v", user)
	}
}
