// Package persist encodes the wallet's persisted layout: flat string keys
// whose list values are versioned JSON envelopes.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Keys of the persisted layout.
const (
	KeyProfileName  = "supermoney_profile_name"
	KeyProfilePhone = "supermoney_profile_phone"
	KeyProfileImage = "supermoney_profile_image"
	KeyTransactions = "supermoney_transactions"
	KeyContacts     = "supermoney_upi_contacts"
)

// SchemaVersion is the envelope version written by this build.
// Version 0 is a bare JSON array without an envelope.
const SchemaVersion = 1

// ErrUnsupportedVersion is returned for envelopes newer than SchemaVersion.
var ErrUnsupportedVersion = errors.New("unsupported schema version")

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// ============================================================
// Transactions
// ============================================================

type transactionRecord struct {
	ID                 *string          `json:"id"`
	Payee              *payeeRecord     `json:"payee"`
	Amount             *decimal.Decimal `json:"amount"`
	Timestamp          *string          `json:"timestamp"`
	CashbackPercentage *float64         `json:"cashbackPercentage"`
}

type payeeRecord struct {
	Name  *string `json:"name"`
	UpiID *string `json:"upiId"`
}

// EncodeTransactions renders the ledger with RFC3339 timestamps.
func EncodeTransactions(txs []domain.Transaction) (string, error) {
	records := make([]transactionRecord, len(txs))
	for i := range txs {
		tx := txs[i]
		ts := tx.Timestamp.UTC().Format(time.RFC3339Nano)
		records[i] = transactionRecord{
			ID:                 &tx.ID,
			Payee:              &payeeRecord{Name: &tx.Payee.Name, UpiID: &tx.Payee.UpiID},
			Amount:             &tx.Amount,
			Timestamp:          &ts,
			CashbackPercentage: &tx.CashbackPercentage,
		}
	}
	return encode(records)
}

// DecodeTransactions parses and validates a persisted ledger. Any element
// that does not match the schema rejects the whole payload. At most
// domain.LedgerCapacity entries are returned.
func DecodeTransactions(raw string) ([]domain.Transaction, error) {
	var records []transactionRecord
	if err := decode(raw, &records); err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(records))
	for i, r := range records {
		if r.ID == nil || *r.ID == "" {
			return nil, fmt.Errorf("transaction %d: missing id", i)
		}
		if r.Payee == nil || r.Payee.Name == nil || r.Payee.UpiID == nil || *r.Payee.UpiID == "" {
			return nil, fmt.Errorf("transaction %d: missing payee", i)
		}
		if r.Amount == nil || !r.Amount.IsPositive() {
			return nil, fmt.Errorf("transaction %d: amount must be positive", i)
		}
		if r.Timestamp == nil {
			return nil, fmt.Errorf("transaction %d: missing timestamp", i)
		}
		ts, err := time.Parse(time.RFC3339Nano, *r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: timestamp: %w", i, err)
		}
		cashback := 0.0
		if r.CashbackPercentage != nil {
			cashback = *r.CashbackPercentage
		}
		txs = append(txs, domain.Transaction{
			ID:                 *r.ID,
			Payee:              domain.PayeeInfo{Name: *r.Payee.Name, UpiID: *r.Payee.UpiID},
			Amount:             *r.Amount,
			Timestamp:          ts,
			CashbackPercentage: cashback,
		})
	}

	if len(txs) > domain.LedgerCapacity {
		txs = txs[:domain.LedgerCapacity]
	}
	return txs, nil
}

// ============================================================
// Contacts
// ============================================================

type contactRecord struct {
	ID    *string `json:"id"`
	UpiID *string `json:"upiId"`
	Name  *string `json:"name"`
}

// EncodeContacts renders the contact directory.
func EncodeContacts(contacts []domain.UpiContact) (string, error) {
	if contacts == nil {
		contacts = []domain.UpiContact{}
	}
	return encode(contacts)
}

// DecodeContacts parses a persisted directory. Every element must carry
// id, upiId and name.
func DecodeContacts(raw string) ([]domain.UpiContact, error) {
	var records []contactRecord
	if err := decode(raw, &records); err != nil {
		return nil, err
	}

	contacts := make([]domain.UpiContact, 0, len(records))
	for i, r := range records {
		if r.ID == nil || r.UpiID == nil || r.Name == nil {
			return nil, fmt.Errorf("contact %d: missing required field", i)
		}
		contacts = append(contacts, domain.UpiContact{ID: *r.ID, UpiID: *r.UpiID, Name: *r.Name})
	}
	return contacts, nil
}

// ============================================================
// Envelope helpers
// ============================================================

func encode(items any) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	out, err := json.Marshal(envelope{Version: SchemaVersion, Items: data})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(out), nil
}

func decode(raw string, into any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	items := []byte(trimmed)
	if trimmed[0] == '{' {
		var env envelope
		dec := json.NewDecoder(bytes.NewReader(items))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		if env.Version < 1 || env.Version > SchemaVersion {
			return fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		items = env.Items
	}

	if len(items) == 0 || items[0] != '[' {
		return errors.New("items must be a JSON array")
	}
	if err := json.Unmarshal(items, into); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}
	return nil
}
