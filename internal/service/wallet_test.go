package service_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/kvstore"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/persist"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Helpers ---

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newWallet(t *testing.T, store port.KVStore, opts ...service.WalletOption) *service.Wallet {
	t.Helper()
	opts = append([]service.WalletOption{service.WithRand(rand.New(rand.NewSource(7)))}, opts...)
	w := service.NewWallet(store, deeplink.NewClassifier(deeplink.DefaultRules()), observability.NewMetrics(), zap.NewNop(), opts...)
	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return w
}

func pay(t *testing.T, w *service.Wallet, name string, amount int64) domain.Transaction {
	t.Helper()
	tx, err := w.AddTransaction(context.Background(), domain.PayeeInfo{Name: name, UpiID: strings.ToLower(name) + "@okaxis"}, decimal.NewFromInt(amount))
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return tx
}

type failingStore struct {
	port.KVStore
	writes int
}

func (f *failingStore) Set(context.Context, string, string) error {
	f.writes++
	return errors.New("disk full")
}

// --- Load ---

func TestLoad_EmptyStoreSeedsContacts(t *testing.T) {
	store := kvstore.NewMemory()
	w := newWallet(t, store)

	if got := len(w.Contacts()); got != 7 {
		t.Fatalf("expected 7 seeded contacts, got %d", got)
	}
	if w.Contacts()[0].Name != "DEEPAK FARSHAN MART" {
		t.Errorf("unexpected first contact %+v", w.Contacts()[0])
	}
	if len(w.Transactions()) != 0 {
		t.Errorf("expected empty ledger")
	}
	if w.Profile() != domain.DefaultProfile() {
		t.Errorf("expected default profile, got %+v", w.Profile())
	}

	raw, err := store.Get(context.Background(), persist.KeyContacts)
	if err != nil {
		t.Fatalf("expected seeded contacts persisted, got %v", err)
	}
	saved, err := persist.DecodeContacts(raw)
	if err != nil || len(saved) != 7 {
		t.Fatalf("expected 7 persisted contacts, got %d (%v)", len(saved), err)
	}
}

func TestLoad_MalformedContactsReseed(t *testing.T) {
	store := kvstore.NewMemory()
	_ = store.Set(context.Background(), persist.KeyContacts, `[{"id":"a@b","upiId":"a@b","name":"A"},{"id":"c@d","upiId":"c@d"}]`)

	w := newWallet(t, store)
	if got := len(w.Contacts()); got != 7 {
		t.Fatalf("expected reseed to 7 contacts, got %d", got)
	}
}

func TestLoad_MalformedLedgerIsEmpty(t *testing.T) {
	store := kvstore.NewMemory()
	_ = store.Set(context.Background(), persist.KeyTransactions, `{"not":"a list"}`)

	w := newWallet(t, store)
	if len(w.Transactions()) != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	store := kvstore.NewMemory()
	w := newWallet(t, store)

	tx := pay(t, w, "Vinita", 250)
	if _, err := w.AddContact(context.Background(), domain.ContactRequest{UpiID: "friend@upi", Name: "New Friend"}); err != nil {
		t.Fatalf("add contact: %v", err)
	}
	w.UpdateProfile(context.Background(), domain.ProfileUpdate{Name: "Asha"})

	reloaded := newWallet(t, store)
	got, err := reloaded.Transaction(tx.ID)
	if err != nil {
		t.Fatalf("expected transaction after reload: %v", err)
	}
	if !got.Amount.Equal(tx.Amount) || !got.Timestamp.Equal(tx.Timestamp) || got.Payee != tx.Payee {
		t.Errorf("transaction changed across reload: %+v vs %+v", got, tx)
	}
	if reloaded.Contacts()[0].UpiID != "friend@upi" {
		t.Errorf("expected new contact first, got %+v", reloaded.Contacts()[0])
	}
	if reloaded.Profile().Name != "Asha" || reloaded.Profile().Phone != domain.DefaultProfilePhone {
		t.Errorf("unexpected profile %+v", reloaded.Profile())
	}
}

// --- Ledger ---

func TestAddTransaction_Shape(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	for i := 0; i < 20; i++ {
		tx := pay(t, w, "Pandiyan", 10)
		if !strings.HasPrefix(tx.ID, "564514873") || len(tx.ID) != 12 {
			t.Fatalf("unexpected id %q", tx.ID)
		}
		suffix := tx.ID[9:]
		if suffix < "100" || suffix > "999" {
			t.Errorf("suffix out of range: %q", suffix)
		}
		if tx.CashbackPercentage < 0.1 || tx.CashbackPercentage >= 0.5 {
			t.Errorf("cashback out of range: %v", tx.CashbackPercentage)
		}
	}
}

func TestAddTransaction_IDsUniqueWithinLedger(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	for i := 0; i < 200; i++ {
		pay(t, w, "Ramesh", 1)
		seen := map[string]bool{}
		for _, tx := range w.Transactions() {
			if seen[tx.ID] {
				t.Fatalf("duplicate id %s in ledger", tx.ID)
			}
			seen[tx.ID] = true
		}
	}
}

func TestAddTransaction_CapsAtFive(t *testing.T) {
	store := kvstore.NewMemory()
	w := newWallet(t, store)

	var ids []string
	for i := 1; i <= 6; i++ {
		ids = append(ids, pay(t, w, "Payee", int64(i)).ID)
	}

	txs := w.Transactions()
	if len(txs) != domain.LedgerCapacity {
		t.Fatalf("expected %d entries, got %d", domain.LedgerCapacity, len(txs))
	}
	if txs[0].ID != ids[5] {
		t.Errorf("expected newest first")
	}
	for _, tx := range txs {
		if tx.ID == ids[0] {
			t.Errorf("expected oldest entry evicted")
		}
	}

	raw, _ := store.Get(context.Background(), persist.KeyTransactions)
	saved, err := persist.DecodeTransactions(raw)
	if err != nil || len(saved) != domain.LedgerCapacity {
		t.Fatalf("expected persisted ledger of 5, got %d (%v)", len(saved), err)
	}
}

func TestAddTransaction_RejectsNonPositive(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	_, err := w.AddTransaction(context.Background(), domain.PayeeInfo{Name: "X", UpiID: "x@y"}, decimal.Zero)
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(w.Transactions()) != 0 {
		t.Errorf("ledger must be unchanged")
	}
}

func TestAddTransaction_WriteFailureIsNotSurfaced(t *testing.T) {
	store := &failingStore{KVStore: kvstore.NewMemory()}
	w := newWallet(t, store)

	pay(t, w, "Vinita", 99)
	if len(w.Transactions()) != 1 {
		t.Fatalf("expected in-memory ledger updated")
	}
	if store.writes == 0 {
		t.Errorf("expected a write attempt")
	}
}

func TestDeleteTransaction(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())
	a := pay(t, w, "A", 1)
	b := pay(t, w, "B", 2)

	if err := w.DeleteTransaction(context.Background(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txs := w.Transactions()
	if len(txs) != 1 || txs[0].ID != b.ID {
		t.Fatalf("unexpected ledger %+v", txs)
	}

	err := w.DeleteTransaction(context.Background(), "nope")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(w.Transactions()) != 1 {
		t.Errorf("unknown id must not change the ledger")
	}
}

func TestDeleteTransactions(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())
	a := pay(t, w, "A", 1)
	b := pay(t, w, "B", 2)
	c := pay(t, w, "C", 3)

	removed := w.DeleteTransactions(context.Background(), []string{a.ID, c.ID, "unknown"})
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	txs := w.Transactions()
	if len(txs) != 1 || txs[0].ID != b.ID {
		t.Fatalf("unexpected ledger %+v", txs)
	}
}

func TestClearTransactions(t *testing.T) {
	store := kvstore.NewMemory()
	w := newWallet(t, store)
	pay(t, w, "A", 1)

	var asked string
	decline := port.ConfirmFunc(func(_ context.Context, q string) (bool, error) {
		asked = q
		return false, nil
	})
	cleared, err := w.ClearTransactions(context.Background(), decline)
	if err != nil || cleared {
		t.Fatalf("expected decline to keep history, got cleared=%v err=%v", cleared, err)
	}
	if asked != service.ClearHistoryQuestion {
		t.Errorf("unexpected question %q", asked)
	}
	if len(w.Transactions()) != 1 {
		t.Fatalf("ledger must be untouched after decline")
	}

	accept := port.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	cleared, err = w.ClearTransactions(context.Background(), accept)
	if err != nil || !cleared {
		t.Fatalf("expected clear, got cleared=%v err=%v", cleared, err)
	}
	if len(w.Transactions()) != 0 {
		t.Fatalf("expected empty ledger")
	}
	if _, err := store.Get(context.Background(), persist.KeyTransactions); !errors.Is(err, port.ErrKeyNotFound) {
		t.Errorf("expected key removed, got %v", err)
	}
	if len(newWallet(t, store).Transactions()) != 0 {
		t.Errorf("expected empty ledger after reload")
	}
}

func TestSearchTransactions_GroupsByMonth(t *testing.T) {
	clock := &testClock{}
	w := newWallet(t, kvstore.NewMemory(), service.WithClock(clock.Now))

	clock.Set(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	pay(t, w, "Madina Stores", 100)
	clock.Set(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	pay(t, w, "Vinita", 200)
	clock.Set(time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC))
	pay(t, w, "Madina Stores", 300)

	groups := w.SearchTransactions("")
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "February 25" || groups[1].Label != "January 25" {
		t.Errorf("unexpected labels %q, %q", groups[0].Label, groups[1].Label)
	}
	if len(groups[1].Transactions) != 2 {
		t.Errorf("expected 2 January entries")
	}

	groups = w.SearchTransactions("  madina ")
	total := 0
	for _, g := range groups {
		for _, tx := range g.Transactions {
			total++
			if tx.Payee.Name != "Madina Stores" {
				t.Errorf("unexpected match %q", tx.Payee.Name)
			}
		}
	}
	if total != 2 {
		t.Errorf("expected 2 matches, got %d", total)
	}

	if got := w.SearchTransactions("nobody"); len(got) != 0 {
		t.Errorf("expected no groups, got %d", len(got))
	}
}

// --- Contacts ---

func TestAddContact(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	c, err := w.AddContact(context.Background(), domain.ContactRequest{UpiID: " friend@upi ", Name: " New Friend "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.ID != "friend@upi" || c.UpiID != "friend@upi" || c.Name != "New Friend" {
		t.Errorf("unexpected contact %+v", c)
	}
	if w.Contacts()[0] != c {
		t.Errorf("expected contact prepended")
	}
}

func TestAddContact_DuplicateIsCaseInsensitive(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())
	before := len(w.Contacts())

	_, err := w.AddContact(context.Background(), domain.ContactRequest{UpiID: "VINITADUBEY063@OKICICI", Name: "Dup"})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if dup.Error() != "UPI ID already exists." {
		t.Errorf("unexpected message %q", dup.Error())
	}
	if len(w.Contacts()) != before {
		t.Errorf("directory must be unchanged")
	}
}

func TestAddContact_Validation(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	cases := []struct {
		req  domain.ContactRequest
		want string
	}{
		{domain.ContactRequest{UpiID: "", Name: "A"}, service.MsgContactFieldsRequired},
		{domain.ContactRequest{UpiID: "a@b", Name: "  "}, service.MsgContactFieldsRequired},
		{domain.ContactRequest{UpiID: "nohandle", Name: "A"}, service.MsgContactInvalidUpiID},
	}
	for _, tc := range cases {
		_, err := w.AddContact(context.Background(), tc.req)
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Fatalf("expected validation error for %+v, got %v", tc.req, err)
		}
		if ve.Message != tc.want {
			t.Errorf("expected %q, got %q", tc.want, ve.Message)
		}
	}
}

func TestUpdateContact(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	c, err := w.UpdateContact(context.Background(), "vinitadubey063@okicici", domain.ContactRequest{UpiID: "vinita@okhdfc", Name: "Vinita D"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.ID != "vinita@okhdfc" {
		t.Errorf("expected id to follow upiId, got %q", c.ID)
	}
	if w.Contacts()[1] != c {
		t.Errorf("expected contact replaced in place, got %+v", w.Contacts()[1])
	}

	_, err = w.UpdateContact(context.Background(), "vinita@okhdfc", domain.ContactRequest{UpiID: "MADINASTORES@srcb", Name: "X"})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	_, err = w.UpdateContact(context.Background(), "missing@x", domain.ContactRequest{UpiID: "a@b", Name: "A"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Changing only the case of its own id is allowed.
	if _, err := w.UpdateContact(context.Background(), "vinita@okhdfc", domain.ContactRequest{UpiID: "VINITA@okhdfc", Name: "V"}); err != nil {
		t.Fatalf("expected self-update to succeed: %v", err)
	}
}

func TestDeleteContact(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	if err := w.DeleteContact(context.Background(), "madinastores@srcb"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, c := range w.Contacts() {
		if c.ID == "madinastores@srcb" {
			t.Fatal("contact still present")
		}
	}
	var nf *domain.ErrNotFound
	if !errors.As(w.DeleteContact(context.Background(), "madinastores@srcb"), &nf) {
		t.Fatal("expected not found on second delete")
	}
}

// --- Profile ---

func TestUpdateProfile_IgnoresBlankFields(t *testing.T) {
	store := kvstore.NewMemory()
	w := newWallet(t, store)

	p := w.UpdateProfile(context.Background(), domain.ProfileUpdate{Name: "  ", Phone: "+91 98765 43210"})
	if p.Name != domain.DefaultProfileName || p.Phone != "+91 98765 43210" {
		t.Errorf("unexpected profile %+v", p)
	}
	if _, err := store.Get(context.Background(), persist.KeyProfileName); !errors.Is(err, port.ErrKeyNotFound) {
		t.Errorf("blank name must not be persisted")
	}
	if v, _ := store.Get(context.Background(), persist.KeyProfilePhone); v != "+91 98765 43210" {
		t.Errorf("expected phone persisted, got %q", v)
	}
}

// --- Scan & tabs ---

func TestResolveScan_UsesDirectory(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())

	payee, err := w.ResolveScan(context.Background(), "upi://pay?pa=PAYTMQR5EBRZH@ptys&pn=Some+Shop")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if payee.Name != "DEEPAK FARSHAN MART" || payee.UpiID != "PAYTMQR5EBRZH@ptys" {
		t.Errorf("unexpected payee %+v", payee)
	}

	_, err = w.ResolveScan(context.Background(), "https://example.com")
	var bad *domain.ErrInvalidDeepLink
	if !errors.As(err, &bad) {
		t.Fatalf("expected invalid deep link, got %v", err)
	}
}

func TestTabView(t *testing.T) {
	w := newWallet(t, kvstore.NewMemory())
	pay(t, w, "A", 5)

	home := w.TabView(domain.ParseNavTab("bogus"))
	if home.Tab != domain.TabHome || home.Home == nil || home.Home.Name != domain.DefaultProfileName {
		t.Errorf("unexpected home view %+v", home)
	}

	payTab := w.TabView(domain.TabPay)
	if payTab.Pay == nil || len(payTab.Pay.Transactions) != 1 || len(payTab.Pay.Contacts) != 7 {
		t.Errorf("unexpected pay view %+v", payTab.Pay)
	}

	prof := w.TabView(domain.TabProfile)
	if prof.Profile == nil || prof.Profile.Profile.ImageReference != domain.DefaultProfileImage {
		t.Errorf("unexpected profile view %+v", prof.Profile)
	}
}
