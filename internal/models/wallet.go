package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types
const (
	WalletCredit = "credit"
	WalletDebit  = "debit"
)

// Top-up channels
const (
	TopUpESewa        = "esewa"
	TopUpKhalti       = "khalti"
	TopUpBankTransfer = "bank_transfer"
	TopUpCard         = "card"
)

var TopUpMethods = []string{TopUpESewa, TopUpKhalti, TopUpBankTransfer, TopUpCard}

// WalletTransaction is one entry in a user's wallet ledger. Reference holds the
// top-up channel for credits and the payment id for debits.
type WalletTransaction struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Type         string          `db:"type" json:"type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	Description  string          `db:"description" json:"description"`
	Reference    string          `db:"reference" json:"reference"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type TopUpRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=esewa khalti bank_transfer card"`
}

type WalletResponse struct {
	Balance          decimal.Decimal      `json:"balance"`
	Currency         string               `json:"currency"`
	Transactions     []*WalletTransaction `json:"transactions"`
	AvailableMethods []string             `json:"available_payment_methods"`
}
