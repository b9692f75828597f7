// Package service holds the wallet's application state and the flows that
// act on it: ledger, contacts, profile, payment sessions and QR scanning.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/persist"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var walletTracer = otel.Tracer("service/wallet")

// ClearHistoryQuestion is asked before the ledger is wiped.
const ClearHistoryQuestion = "Are you sure you want to clear all transaction history? This action cannot be undone."

const transactionIDPrefix = "564514873"

// Wallet is the app-state controller. It owns the profile, the ledger and
// the contact directory, and persists every mutation before returning.
// All actions are serialised by one mutex.
type Wallet struct {
	store      port.KVStore
	classifier *deeplink.Classifier
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	profile  domain.Profile
	ledger   []domain.Transaction
	contacts []domain.UpiContact
}

// WalletOption configures a Wallet.
type WalletOption func(*Wallet)

// WithClock overrides the wallet's time source.
func WithClock(now func() time.Time) WalletOption {
	return func(w *Wallet) { w.now = now }
}

// WithRand overrides the source used for transaction ids and cashback.
func WithRand(r *rand.Rand) WalletOption {
	return func(w *Wallet) { w.rng = r }
}

// NewWallet creates a wallet with default state. Call Load to read the store.
func NewWallet(store port.KVStore, classifier *deeplink.Classifier, metrics *observability.Metrics, logger *zap.Logger, opts ...WalletOption) *Wallet {
	w := &Wallet{
		store:      store,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		profile:    domain.DefaultProfile(),
		contacts:   domain.DefaultContacts(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ============================================================
// Load
// ============================================================

// Load reads profile, ledger and contacts concurrently. Missing or malformed
// values fall back to defaults; only context cancellation is an error.
func (w *Wallet) Load(ctx context.Context) error {
	ctx, span := walletTracer.Start(ctx, "Wallet.Load")
	defer span.End()

	var (
		profile  domain.Profile
		ledger   []domain.Transaction
		contacts []domain.UpiContact
		reseed   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile = domain.DefaultProfile()
		for key, field := range map[string]*string{
			persist.KeyProfileName:  &profile.Name,
			persist.KeyProfilePhone: &profile.Phone,
			persist.KeyProfileImage: &profile.ImageReference,
		} {
			v, ok := w.read(gctx, key)
			if ok && v != "" {
				*field = v
			}
		}
		return gctx.Err()
	})
	g.Go(func() error {
		raw, ok := w.read(gctx, persist.KeyTransactions)
		if !ok {
			return gctx.Err()
		}
		txs, err := persist.DecodeTransactions(raw)
		if err != nil {
			w.logger.Warn("discarding malformed transaction history", zap.Error(err))
			return gctx.Err()
		}
		ledger = txs
		return gctx.Err()
	})
	g.Go(func() error {
		raw, ok := w.read(gctx, persist.KeyContacts)
		if !ok {
			reseed = true
			return gctx.Err()
		}
		list, err := persist.DecodeContacts(raw)
		if err != nil {
			w.logger.Warn("discarding malformed contacts, reseeding", zap.Error(err))
			reseed = true
			return gctx.Err()
		}
		contacts = list
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.profile = profile
	w.ledger = ledger
	if reseed {
		w.contacts = domain.DefaultContacts()
		w.persistContacts(ctx)
	} else {
		w.contacts = contacts
	}

	span.SetAttributes(
		attribute.Int("wallet.transactions", len(w.ledger)),
		attribute.Int("wallet.contacts", len(w.contacts)),
		attribute.Bool("wallet.reseeded", reseed),
	)
	w.logger.Info("wallet loaded",
		zap.Int("transactions", len(w.ledger)),
		zap.Int("contacts", len(w.contacts)),
		zap.Bool("reseeded", reseed),
	)
	return nil
}

// read returns the value under key; ok is false when absent or unreadable.
func (w *Wallet) read(ctx context.Context, key string) (string, bool) {
	v, err := w.store.Get(ctx, key)
	if errors.Is(err, port.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		w.logger.Warn("store read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

// ============================================================
// Persistence (errors are logged and counted, never returned)
// ============================================================

func (w *Wallet) write(ctx context.Context, key, value string) {
	err := w.store.Set(ctx, key, value)
	w.metrics.IncrStoreWrite(key, err)
	if err != nil {
		w.logger.Error("store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (w *Wallet) persistLedger(ctx context.Context) {
	raw, err := persist.EncodeTransactions(w.ledger)
	if err != nil {
		w.logger.Error("encode transactions failed", zap.Error(err))
		return
	}
	w.write(ctx, persist.KeyTransactions, raw)
}

func (w *Wallet) persistContacts(ctx context.Context) {
	raw, err := persist.EncodeContacts(w.contacts)
	if err != nil {
		w.logger.Error("encode contacts failed", zap.Error(err))
		return
	}
	w.write(ctx, persist.KeyContacts, raw)
}

// ============================================================
// Ledger
// ============================================================

// Transactions returns the ledger, newest first.
func (w *Wallet) Transactions() []domain.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Transaction{}, w.ledger...)
}

// Transaction returns one ledger entry.
func (w *Wallet) Transaction(id string) (domain.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, tx := range w.ledger {
		if tx.ID == id {
			return tx, nil
		}
	}
	return domain.Transaction{}, &domain.ErrNotFound{Resource: "transaction", ID: id}
}

// AddTransaction records a completed payment: prepend, cap, persist.
func (w *Wallet) AddTransaction(ctx context.Context, payee domain.PayeeInfo, amount decimal.Decimal) (domain.Transaction, error) {
	ctx, span := walletTracer.Start(ctx, "Wallet.AddTransaction")
	defer span.End()
	start := time.Now()
	defer func() { w.metrics.RecordDuration("add_transaction", time.Since(start)) }()

	if !amount.IsPositive() {
		return domain.Transaction{}, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}
	if strings.TrimSpace(payee.UpiID) == "" {
		return domain.Transaction{}, &domain.ErrValidation{Field: "upiId", Message: "payee UPI ID is required"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tx := domain.Transaction{
		ID:                 w.newTransactionID(),
		Payee:              payee,
		Amount:             amount,
		Timestamp:          w.now(),
		CashbackPercentage: w.rng.Float64()*0.4 + 0.1,
	}

	ledger := make([]domain.Transaction, 0, domain.LedgerCapacity)
	ledger = append(ledger, tx)
	ledger = append(ledger, w.ledger...)
	if len(ledger) > domain.LedgerCapacity {
		ledger = ledger[:domain.LedgerCapacity]
	}
	w.ledger = ledger
	w.persistLedger(ctx)

	kind := "personal"
	if w.classifier.IsMerchant(payee.UpiID, payee.Name) {
		kind = "merchant"
	}
	w.metrics.IncrPayment(kind)

	span.SetAttributes(attribute.String("tx.id", tx.ID))
	w.logger.Info("transaction recorded",
		zap.String("tx_id", tx.ID),
		zap.String("upi_id", payee.UpiID),
		zap.String("amount", amount.String()),
	)
	return tx, nil
}

// newTransactionID draws ids until one is unused in the live ledger.
// Must hold w.mu.
func (w *Wallet) newTransactionID() string {
	for {
		id := fmt.Sprintf("%s%d", transactionIDPrefix, 100+w.rng.Intn(900))
		taken := false
		for _, tx := range w.ledger {
			if tx.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// DeleteTransaction removes one entry. An unknown id leaves the ledger as is.
func (w *Wallet) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := walletTracer.Start(ctx, "Wallet.DeleteTransaction")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.ledger[:0:0]
	for _, tx := range w.ledger {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	if len(kept) == len(w.ledger) {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	w.ledger = kept
	w.persistLedger(ctx)

	w.logger.Info("transaction deleted", zap.String("tx_id", id))
	return nil
}

// DeleteTransactions removes every entry whose id is in ids and returns how
// many were removed. Unknown ids are ignored.
func (w *Wallet) DeleteTransactions(ctx context.Context, ids []string) int {
	ctx, span := walletTracer.Start(ctx, "Wallet.DeleteTransactions")
	defer span.End()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.ledger[:0:0]
	for _, tx := range w.ledger {
		if _, ok := drop[tx.ID]; !ok {
			kept = append(kept, tx)
		}
	}
	removed := len(w.ledger) - len(kept)
	w.ledger = kept
	w.persistLedger(ctx)

	span.SetAttributes(attribute.Int("tx.removed", removed))
	w.logger.Info("transactions deleted", zap.Int("removed", removed))
	return removed
}

// ClearTransactions wipes the ledger once c confirms. It reports whether the
// ledger was cleared; declining leaves everything untouched.
func (w *Wallet) ClearTransactions(ctx context.Context, c port.Confirmer) (bool, error) {
	ctx, span := walletTracer.Start(ctx, "Wallet.ClearTransactions")
	defer span.End()

	// Asked before taking the lock: the answer may take a while.
	ok, err := c.Confirm(ctx, ClearHistoryQuestion)
	if err != nil {
		return false, fmt.Errorf("confirm clear: %w", err)
	}
	if !ok {
		return false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.ledger = nil
	if err := w.store.Remove(ctx, persist.KeyTransactions); err != nil {
		w.metrics.IncrStoreWrite(persist.KeyTransactions, err)
		w.logger.Error("store remove failed", zap.String("key", persist.KeyTransactions), zap.Error(err))
	}

	w.logger.Info("transaction history cleared")
	return true, nil
}

// SearchTransactions filters the ledger by payee name (case-insensitive
// substring) and groups the matches by month, newest first.
func (w *Wallet) SearchTransactions(query string) []domain.TransactionGroup {
	txs := w.Transactions()
	q := strings.ToLower(strings.TrimSpace(query))

	groups := []domain.TransactionGroup{}
	index := map[string]int{}
	for _, tx := range txs {
		if q != "" && !strings.Contains(strings.ToLower(tx.Payee.Name), q) {
			continue
		}
		label := tx.Timestamp.Format("January 06")
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, domain.TransactionGroup{Label: label})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}
	return groups
}

// ============================================================
// Scan resolution
// ============================================================

// ResolveScan classifies a decoded QR payload against the saved contacts.
func (w *Wallet) ResolveScan(ctx context.Context, raw string) (domain.PayeeInfo, error) {
	_, span := walletTracer.Start(ctx, "Wallet.ResolveScan")
	defer span.End()

	w.mu.Lock()
	dir := deeplink.ContactList(append([]domain.UpiContact(nil), w.contacts...))
	w.mu.Unlock()

	payee, err := w.classifier.Resolve(raw, dir)
	if err != nil {
		w.metrics.IncrScan("rejected")
		w.logger.Info("scan rejected", zap.Error(err))
		return domain.PayeeInfo{}, err
	}

	w.metrics.IncrScan("resolved")
	span.SetAttributes(attribute.String("payee.upi_id", payee.UpiID))
	w.logger.Info("scan resolved", zap.String("upi_id", payee.UpiID))
	return payee, nil
}

// ============================================================
// Presentation shell
// ============================================================

// TabView composes the data shown on a bottom navigation tab.
func (w *Wallet) TabView(tab domain.NavTab) domain.TabView {
	w.mu.Lock()
	defer w.mu.Unlock()

	view := domain.TabView{Tab: tab}
	switch tab {
	case domain.TabPay:
		view.Pay = &domain.PayView{
			Transactions: append([]domain.Transaction{}, w.ledger...),
			Contacts:     append([]domain.UpiContact{}, w.contacts...),
		}
	case domain.TabProfile:
		view.Profile = &domain.ProfileView{
			Profile:  w.profile,
			Contacts: append([]domain.UpiContact{}, w.contacts...),
		}
	default:
		view.Tab = domain.TabHome
		view.Home = &domain.HomeView{Name: w.profile.Name, ProfileImage: w.profile.ImageReference}
	}
	return view
}
