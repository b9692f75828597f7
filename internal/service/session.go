package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SessionTimings are the delays of the payment flow.
type SessionTimings struct {
	PINCheckDelay      time.Duration
	PINErrorResetDelay time.Duration
	SettlementDelay    time.Duration
}

// DefaultSessionTimings match the demo app.
func DefaultSessionTimings() SessionTimings {
	return SessionTimings{
		PINCheckDelay:      200 * time.Millisecond,
		PINErrorResetDelay: 800 * time.Millisecond,
		SettlementDelay:    5 * time.Second,
	}
}

// TransactionRecorder commits a paid transaction to the ledger.
type TransactionRecorder interface {
	AddTransaction(ctx context.Context, payee domain.PayeeInfo, amount decimal.Decimal) (domain.Transaction, error)
}

// PaymentSession drives one payment details screen:
// idle -> pin_entry -> processing -> success.
//
// Delayed transitions run on timers. Every timer carries the generation it
// was scheduled in; CancelPIN, PayAgain and Close bump the generation so a
// stale timer does nothing.
type PaymentSession struct {
	id       string
	recorder TransactionRecorder
	verifier port.PINVerifier
	timings  SessionTimings
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	payee   domain.PayeeInfo
	kind    string
	state   domain.SessionState
	amount  string
	pin     string
	pinErr  string
	tx      *domain.Transaction
	gen     uint64
	closed  bool
	changed chan struct{}
}

// NewPaymentSession opens a session for view. A HistoricalPayment starts in
// success showing the stored transaction.
func NewPaymentSession(id string, view domain.PaymentView, recorder TransactionRecorder, verifier port.PINVerifier, timings SessionTimings, metrics *observability.Metrics, logger *zap.Logger) *PaymentSession {
	s := &PaymentSession{
		id:       id,
		recorder: recorder,
		verifier: verifier,
		timings:  timings,
		metrics:  metrics,
		logger:   logger.With(zap.String("session_id", id)),
		payee:    view.ViewPayee(),
		kind:     "new",
		state:    domain.StateIdle,
		changed:  make(chan struct{}),
	}
	if h, ok := view.(domain.HistoricalPayment); ok {
		tx := h.Transaction
		s.kind = "historical"
		s.state = domain.StateSuccess
		s.amount = tx.Amount.String()
		s.tx = &tx
	}
	return s
}

// ID returns the session id.
func (s *PaymentSession) ID() string { return s.id }

// Snapshot returns the current read model.
func (s *PaymentSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PaymentSession) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:  s.id,
		Kind:       s.kind,
		State:      s.state,
		Payee:      s.payee,
		Amount:     s.amount,
		CanProceed: s.canProceed(),
		PINDigits:  len(s.pin),
		PINError:   s.pinErr,
		Verifying:  s.state == domain.StatePINEntry && len(s.pin) == domain.PINLength && s.pinErr == "",
	}
	if s.tx != nil {
		tx := *s.tx
		snap.Transaction = &tx
	}
	return snap
}

func (s *PaymentSession) canProceed() bool {
	d, err := decimal.NewFromString(s.amount)
	return err == nil && d.IsPositive()
}

// transition sets the state and wakes waiters. Must hold s.mu.
func (s *PaymentSession) transition(to domain.SessionState) {
	s.state = to
	s.notify()
}

// notify wakes waiters without a state change. Must hold s.mu.
func (s *PaymentSession) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *PaymentSession) require(state domain.SessionState, action string) error {
	if s.closed {
		return &domain.ErrNotFound{Resource: "session", ID: s.id}
	}
	if s.state != state {
		return &domain.ErrInvalidTransition{State: s.state, Action: action}
	}
	return nil
}

// after runs fn under s.mu once d has elapsed, unless the generation moved on.
// Must hold s.mu.
func (s *PaymentSession) after(d time.Duration, fn func()) {
	gen := s.gen
	time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.gen != gen {
			return
		}
		fn()
	})
}

// ============================================================
// idle
// ============================================================

// SetAmount replaces the amount with the digits of raw.
func (s *PaymentSession) SetAmount(raw string) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StateIdle, "set amount"); err != nil {
		return domain.SessionSnapshot{}, err
	}

	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	s.amount = b.String()
	s.notify()
	return s.snapshotLocked(), nil
}

// Proceed opens PIN entry once the amount is positive.
func (s *PaymentSession) Proceed() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StateIdle, "proceed"); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if !s.canProceed() {
		return domain.SessionSnapshot{}, &domain.ErrValidation{Field: "amount", Message: "enter an amount greater than zero"}
	}

	s.pin, s.pinErr = "", ""
	s.transition(domain.StatePINEntry)
	s.logger.Debug("pin entry opened", zap.String("amount", s.amount))
	return s.snapshotLocked(), nil
}

// ============================================================
// pin_entry
// ============================================================

// PressDigit appends one digit. Input is ignored while the buffer is full,
// i.e. while a check is pending or an error is shown.
func (s *PaymentSession) PressDigit(digit string) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StatePINEntry, "enter PIN"); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if len(digit) != 1 || digit[0] < '0' || digit[0] > '9' {
		return domain.SessionSnapshot{}, &domain.ErrValidation{Field: "digit", Message: "must be a single digit 0-9"}
	}
	if len(s.pin) >= domain.PINLength {
		return s.snapshotLocked(), nil
	}

	s.pin += digit
	if len(s.pin) == domain.PINLength {
		s.after(s.timings.PINCheckDelay, s.checkPIN)
	}
	s.notify()
	return s.snapshotLocked(), nil
}

// Backspace removes the last digit. Ignored while the buffer is full.
func (s *PaymentSession) Backspace() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StatePINEntry, "delete PIN digit"); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if n := len(s.pin); n > 0 && n < domain.PINLength {
		s.pin = s.pin[:n-1]
		s.notify()
	}
	return s.snapshotLocked(), nil
}

// CancelPIN dismisses PIN entry and returns to idle, dropping any pending check.
func (s *PaymentSession) CancelPIN() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StatePINEntry, "cancel PIN entry"); err != nil {
		return domain.SessionSnapshot{}, err
	}
	s.gen++
	s.pin, s.pinErr = "", ""
	s.transition(domain.StateIdle)
	return s.snapshotLocked(), nil
}

// checkPIN runs under s.mu from a timer.
func (s *PaymentSession) checkPIN() {
	if s.state != domain.StatePINEntry || len(s.pin) != domain.PINLength {
		return
	}

	ok := s.verifier.Verify(s.pin)
	s.metrics.IncrPINAttempt(ok)
	if !ok {
		s.logger.Info("incorrect PIN entered")
		s.fail(domain.IncorrectPINMessage)
		return
	}

	amount, err := decimal.NewFromString(s.amount)
	if err != nil {
		s.fail(err.Error())
		return
	}
	tx, err := s.recorder.AddTransaction(context.Background(), s.payee, amount)
	if err != nil {
		s.logger.Error("commit transaction failed", zap.Error(err))
		s.fail(err.Error())
		return
	}

	s.tx = &tx
	s.pin, s.pinErr = "", ""
	s.transition(domain.StateProcessing)
	s.logger.Info("payment processing", zap.String("tx_id", tx.ID))

	s.after(s.timings.SettlementDelay, func() {
		s.transition(domain.StateSuccess)
		s.logger.Info("payment successful", zap.String("tx_id", tx.ID))
	})
}

// fail shows msg and clears the buffer after the reset delay. Must hold s.mu.
func (s *PaymentSession) fail(msg string) {
	s.pinErr = msg
	s.notify()
	s.after(s.timings.PINErrorResetDelay, func() {
		if s.state != domain.StatePINEntry {
			return
		}
		s.pin, s.pinErr = "", ""
		s.notify()
	})
}

// ============================================================
// success
// ============================================================

// PayAgain starts a fresh payment to the same payee.
func (s *PaymentSession) PayAgain() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(domain.StateSuccess, "pay again"); err != nil {
		return domain.SessionSnapshot{}, err
	}
	s.gen++
	s.kind = "new"
	s.amount, s.pin, s.pinErr = "", "", ""
	s.tx = nil
	s.transition(domain.StateIdle)
	return s.snapshotLocked(), nil
}

// ============================================================
// Lifecycle
// ============================================================

// WaitFor blocks until the session reaches state or ctx is done.
func (s *PaymentSession) WaitFor(ctx context.Context, state domain.SessionState) (domain.SessionSnapshot, error) {
	return s.WaitUntil(ctx, func(snap domain.SessionSnapshot) bool { return snap.State == state })
}

// WaitUntil blocks until done reports true for the current snapshot.
func (s *PaymentSession) WaitUntil(ctx context.Context, done func(domain.SessionSnapshot) bool) (domain.SessionSnapshot, error) {
	for {
		s.mu.Lock()
		if snap := s.snapshotLocked(); done(snap) {
			s.mu.Unlock()
			return snap, nil
		}
		if s.closed {
			s.mu.Unlock()
			return domain.SessionSnapshot{}, &domain.ErrNotFound{Resource: "session", ID: s.id}
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.SessionSnapshot{}, ctx.Err()
		case <-ch:
		}
	}
}

// Close ends the session. Pending timers become no-ops; a transaction
// already committed stays in the ledger.
func (s *PaymentSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.notify()
}
