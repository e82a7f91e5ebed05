package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment methods
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodWallet = "wallet"
)

type Payment struct {
	ID        string          `db:"id" json:"id"`
	RideID    string          `db:"ride_id" json:"ride_id"`
	RiderID   string          `db:"rider_id" json:"rider_id"`
	DriverID  *string         `db:"driver_id" json:"driver_id,omitempty"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Currency  string          `db:"currency" json:"currency"`
	Method    string          `db:"method" json:"method"`
	Status    string          `db:"status" json:"status"`
	Outcome   Outcome         `db:"outcome" json:"outcome"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type CreatePaymentRequest struct {
	RideID string `json:"ride_id" validate:"required,uuid"`
	Method string `json:"method" validate:"required,oneof=cash card wallet"`
}

// PaymentOutcome is the processor-specific result of settling a payment.
type PaymentOutcome interface {
	Kind() string
}

type CashOutcome struct {
	CollectedBy string `json:"collected_by"`
}

type CardOutcome struct {
	Processor         string `json:"processor"`
	AuthorizationCode string `json:"authorization_code"`
}

type WalletOutcome struct {
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

func (CashOutcome) Kind() string   { return PaymentMethodCash }
func (CardOutcome) Kind() string   { return PaymentMethodCard }
func (WalletOutcome) Kind() string { return PaymentMethodWallet }

// Outcome stores a PaymentOutcome as {"kind": ..., ...} in a JSONB column.
type Outcome struct {
	PaymentOutcome
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.PaymentOutcome == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(o.PaymentOutcome)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(o.Kind())
	fields["kind"] = kind
	return json.Marshal(fields)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		o.PaymentOutcome = nil
		return nil
	}

	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Kind {
	case PaymentMethodCash:
		var v CashOutcome
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		o.PaymentOutcome = v
	case PaymentMethodCard:
		var v CardOutcome
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		o.PaymentOutcome = v
	case PaymentMethodWallet:
		var v WalletOutcome
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		o.PaymentOutcome = v
	default:
		return fmt.Errorf("unknown payment outcome kind %q", tag.Kind)
	}
	return nil
}

func (o Outcome) Value() (driver.Value, error) {
	if o.PaymentOutcome == nil {
		return nil, nil
	}
	// lib/pq sends []byte as bytea, JSONB needs text
	b, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *Outcome) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		o.PaymentOutcome = nil
		return nil
	case []byte:
		return o.UnmarshalJSON(v)
	case string:
		return o.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Outcome", src)
	}
}
