package domain

import "strings"

// ============================================================
// Payment session
// ============================================================

// SessionState is a step of the payment flow.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StatePINEntry   SessionState = "pin_entry"
	StateProcessing SessionState = "processing"
	StateSuccess    SessionState = "success"
)

// PINLength is the number of digits in a UPI PIN.
const PINLength = 4

// IncorrectPINMessage is the inline error shown on a PIN mismatch.
const IncorrectPINMessage = "Incorrect PIN"

// PaymentView is what a payment details screen is opened for.
// It is either a NewPayment or a HistoricalPayment, never both.
type PaymentView interface {
	paymentView()
	// ViewPayee is the payee shown on the screen.
	ViewPayee() PayeeInfo
}

// NewPayment opens the amount entry for a payee.
type NewPayment struct {
	Payee PayeeInfo
}

func (NewPayment) paymentView()           {}
func (v NewPayment) ViewPayee() PayeeInfo { return v.Payee }

// HistoricalPayment shows the receipt of a past transaction.
type HistoricalPayment struct {
	Transaction Transaction
}

func (HistoricalPayment) paymentView()           {}
func (v HistoricalPayment) ViewPayee() PayeeInfo { return v.Transaction.Payee }

// SessionSnapshot is the read model of a payment session.
type SessionSnapshot struct {
	SessionID   string       `json:"sessionId"`
	Kind        string       `json:"kind"` // "new" or "historical"
	State       SessionState `json:"state"`
	Payee       PayeeInfo    `json:"payee"`
	Amount      string       `json:"amount"`
	CanProceed  bool         `json:"canProceed"`
	PINDigits   int          `json:"pinDigits"`
	PINError    string       `json:"pinError,omitempty"`
	Verifying   bool         `json:"verifying"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// ============================================================
// Presentation shell
// ============================================================

// NavTab is a bottom navigation tab.
type NavTab string

const (
	TabHome    NavTab = "Home"
	TabPay     NavTab = "Pay"
	TabProfile NavTab = "Profile"
)

// ParseNavTab maps a tab name to a NavTab; unknown names fall back to Home.
func ParseNavTab(s string) NavTab {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pay":
		return TabPay
	case "profile":
		return TabProfile
	default:
		return TabHome
	}
}

// HomeView is the data behind the Home tab.
type HomeView struct {
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}

// PayView is the data behind the Pay tab.
type PayView struct {
	Transactions []Transaction `json:"transactions"`
	Contacts     []UpiContact  `json:"contacts"`
}

// ProfileView is the data behind the Profile tab.
type ProfileView struct {
	Profile  Profile      `json:"profile"`
	Contacts []UpiContact `json:"contacts"`
}

// TabView is the composed payload for one tab.
type TabView struct {
	Tab     NavTab       `json:"tab"`
	Home    *HomeView    `json:"home,omitempty"`
	Pay     *PayView     `json:"pay,omitempty"`
	Profile *ProfileView `json:"profile,omitempty"`
}
