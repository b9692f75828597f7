// Package domain defines the wallet entities shared by the service,
// handler and CLI layers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerCapacity is the number of transactions kept in history.
const LedgerCapacity = 5

// Profile defaults used when nothing is persisted.
const (
	DefaultProfileName  = "Guest"
	DefaultProfilePhone = "+91 XXXXXXXX"
	DefaultProfileImage = "https://picsum.photos/seed/user/80/80"
)

// PayeeInfo identifies who is being paid.
type PayeeInfo struct {
	Name  string `json:"name"`
	UpiID string `json:"upiId"`
}

// UpiContact is a saved payee. ID always equals UpiID.
type UpiContact struct {
	ID    string `json:"id"`
	UpiID string `json:"upiId"`
	Name  string `json:"name"`
}

// NewUpiContact builds a contact keyed by its UPI ID.
func NewUpiContact(upiID, name string) UpiContact {
	return UpiContact{ID: upiID, UpiID: upiID, Name: name}
}

// Payee returns the contact as a payee.
func (c UpiContact) Payee() PayeeInfo {
	return PayeeInfo{Name: c.Name, UpiID: c.UpiID}
}

// Transaction is a completed payment.
type Transaction struct {
	ID                 string          `json:"id"`
	Payee              PayeeInfo       `json:"payee"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
	CashbackPercentage float64         `json:"cashbackPercentage"`
}

// TransactionGroup is a month bucket of the history view.
type TransactionGroup struct {
	Label        string        `json:"label"`
	Transactions []Transaction `json:"transactions"`
}

// Profile holds the user's display details.
type Profile struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	ImageReference string `json:"imageReference"`
}

// DefaultProfile returns the profile shown before any edit.
func DefaultProfile() Profile {
	return Profile{
		Name:           DefaultProfileName,
		Phone:          DefaultProfilePhone,
		ImageReference: DefaultProfileImage,
	}
}

// ProfileUpdate carries optional profile edits. Blank fields are ignored.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Image string `json:"image,omitempty"`
}

// ContactRequest is the add/update payload for a contact.
type ContactRequest struct {
	UpiID string `json:"upiId"`
	Name  string `json:"name"`
}

// DefaultContacts is the seed directory.
func DefaultContacts() []UpiContact {
	return []UpiContact{
		NewUpiContact("paytmqr5ebrzh@ptys", "DEEPAK FARSHAN MART"),
		NewUpiContact("vinitadubey063@okicici", "Vinita"),
		NewUpiContact("q479187664@ybl", "Ramesh Singh Paramar"),
		NewUpiContact("paytm.s15nu2j@pty", "Ganesan Sivasubramanian Konar"),
		NewUpiContact("madinastores@srcb", "Madina Stores"),
		NewUpiContact("pandiyans201700@tmb", "Pandiyan"),
		NewUpiContact("paytmqr6bl6sf@ptys", "Pranshu Dwivedi"),
	}
}
