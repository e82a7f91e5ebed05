package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOutcomeCarriesKindTag(t *testing.T) {
	out := Outcome{WalletOutcome{BalanceAfter: decimal.RequireFromString("40.25")}}

	v, err := out.Value()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value() should be text for JSONB, got %T", v)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		t.Fatal(err)
	}
	if fields["kind"] != "wallet" {
		t.Errorf("kind = %v, want wallet", fields["kind"])
	}

	var back Outcome
	if err := back.Scan([]byte(s)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	wallet, ok := back.PaymentOutcome.(WalletOutcome)
	if !ok {
		t.Fatalf("decoded %T, want WalletOutcome", back.PaymentOutcome)
	}
	if !wallet.BalanceAfter.Equal(decimal.RequireFromString("40.25")) {
		t.Errorf("BalanceAfter = %s", wallet.BalanceAfter)
	}
}

func TestOutcomeRejectsUnknownKind(t *testing.T) {
	var o Outcome
	if err := o.Scan([]byte(`{"kind":"crypto"}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestOutcomeNull(t *testing.T) {
	var o Outcome
	if err := o.Scan(nil); err != nil || o.PaymentOutcome != nil {
		t.Errorf("Scan(nil) = %v, %v", o.PaymentOutcome, err)
	}
	if v, _ := o.Value(); v != nil {
		t.Errorf("Value() of empty outcome = %v, want nil", v)
	}
}
