package persist_test

import (
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/persist"

	"github.com/shopspring/decimal"
)

func TestTransactions_EnvelopeRoundTrip(t *testing.T) {
	ts := time.Date(2025, 1, 14, 18, 30, 0, 0, time.UTC)
	in := []domain.Transaction{{
		ID:                 "564514873123",
		Payee:              domain.PayeeInfo{Name: "Madina Stores", UpiID: "madinastores@srcb"},
		Amount:             decimal.NewFromInt(250),
		Timestamp:          ts,
		CashbackPercentage: 0.27,
	}}

	raw, err := persist.EncodeTransactions(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(raw, `{"version":1,`) {
		t.Errorf("expected versioned envelope, got %s", raw)
	}

	out, err := persist.DecodeTransactions(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(out))
	}
	if !out[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp mismatch: %v", out[0].Timestamp)
	}
	if !out[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("amount mismatch: %s", out[0].Amount)
	}
}

func TestDecodeTransactions_LegacyArray(t *testing.T) {
	raw := `[{"id":"564514873456","payee":{"name":"Vinita","upiId":"vinitadubey063@okicici"},"amount":120,"timestamp":"2025-02-01T09:15:42.120Z","cashbackPercentage":0.31}]`

	out, err := persist.DecodeTransactions(raw)
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if len(out) != 1 || out[0].Payee.Name != "Vinita" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out[0].Timestamp.Year() != 2025 || out[0].Timestamp.Month() != time.February {
		t.Errorf("timestamp not re-parsed: %v", out[0].Timestamp)
	}
}

func TestDecodeTransactions_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `hello`,
		"object":          `{"id":"1"}`,
		"future version":  `{"version":9,"items":[]}`,
		"missing payee":   `[{"id":"1","amount":1,"timestamp":"2025-01-01T00:00:00Z"}]`,
		"zero amount":     `[{"id":"1","payee":{"name":"a","upiId":"a@b"},"amount":0,"timestamp":"2025-01-01T00:00:00Z"}]`,
		"bad timestamp":   `[{"id":"1","payee":{"name":"a","upiId":"a@b"},"amount":5,"timestamp":"yesterday"}]`,
		"items not array": `{"version":1,"items":{}}`,
	}
	for name, raw := range cases {
		if _, err := persist.DecodeTransactions(raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeTransactions_CapsAtLedgerCapacity(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, domain.Transaction{
			ID:        "id",
			Payee:     domain.PayeeInfo{Name: "n", UpiID: "n@ybl"},
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Timestamp: time.Now(),
		})
	}
	raw, err := persist.EncodeTransactions(txs)
	if err != nil {
		t.Fatal(err)
	}
	out, err := persist.DecodeTransactions(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != domain.LedgerCapacity {
		t.Errorf("expected %d, got %d", domain.LedgerCapacity, len(out))
	}
}

func TestContacts_RoundTripAndValidation(t *testing.T) {
	raw, err := persist.EncodeContacts(domain.DefaultContacts())
	if err != nil {
		t.Fatal(err)
	}
	out, err := persist.DecodeContacts(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 7 {
		t.Errorf("expected 7 contacts, got %d", len(out))
	}

	if _, err := persist.DecodeContacts(`[{"id":"a@b","upiId":"a@b"}]`); err == nil {
		t.Error("expected error for contact without name")
	}
	if _, err := persist.DecodeContacts(`[{"id":"a@b","upiId":"a@b","name":"A"}]`); err != nil {
		t.Errorf("legacy array should decode: %v", err)
	}
}
