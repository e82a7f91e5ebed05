package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string          `db:"id" json:"id"`
	Phone         string          `db:"phone" json:"phone"`
	Name          string          `db:"name" json:"name"`
	Email         *string         `db:"email" json:"email,omitempty"`
	UserType      Role            `db:"user_type" json:"user_type"`
	WalletBalance decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type CreateUserRequest struct {
	Phone    string `json:"phone" validate:"required,min=10,max=15"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	UserType string `json:"user_type" validate:"required,oneof=rider driver admin"`
}

type UserResponse struct {
	ID            string          `json:"id"`
	Phone         string          `json:"phone"`
	Name          string          `json:"name"`
	Email         *string         `json:"email,omitempty"`
	UserType      Role            `json:"user_type"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Phone:         u.Phone,
		Name:          u.Name,
		Email:         u.Email,
		UserType:      u.UserType,
		WalletBalance: u.WalletBalance,
	}
}
