package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/config"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/kvstore"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/persist"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		DBPath:             "unused.db",
		MaxRetries:         1,
		InitialBackoff:     time.Millisecond,
		MaxConcurrency:     1,
		PIN:                "2580",
		PINCheckDelay:      time.Millisecond,
		PINErrorResetDelay: 20 * time.Millisecond,
		SettlementDelay:    5 * time.Millisecond,
		ScanInterval:       5 * time.Millisecond,
	}
}

// run executes one upictl invocation against store.
func run(t *testing.T, store port.KVStore, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{cfg: testConfig(), store: store})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func runJSON(t *testing.T, store port.KVStore, args ...string) CLIResponse {
	t.Helper()
	out, _ := run(t, store, "", append(args, "--format", "json")...)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := run(t, kvstore.NewMemory(), "", "tab", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProfile_ShowAndSet(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "", "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, domain.DefaultProfile().Name)

	out, err = run(t, store, "", "profile", "set", "--name", "Asha Kumar", "--phone", "   ")
	require.NoError(t, err)
	assert.Contains(t, out, "Asha Kumar")
	assert.Contains(t, out, domain.DefaultProfile().Phone)

	resp := runJSON(t, store, "profile", "show")
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Asha Kumar", resp.Data.(map[string]any)["name"])
}

func TestContacts_Lifecycle(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "", "contacts", "add", "asha@okaxis", "Asha", "Kumar")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Asha Kumar (asha@okaxis)")

	_, err = run(t, store, "", "contacts", "add", "ASHA@okaxis", "Someone")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := runJSON(t, store, "contacts", "add", "not-an-id", "Bad")
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "validation", resp.Error.Code)
	assert.Equal(t, "Please enter a valid UPI ID.", resp.Error.Message)

	out, err = run(t, store, "", "contacts", "update", "asha@okaxis", "--upi-id", "asha@ybl")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated Asha Kumar (asha@ybl)")

	_, err = run(t, store, "", "contacts", "delete", "asha@ybl")
	require.NoError(t, err)

	_, err = run(t, store, "", "contacts", "delete", "asha@ybl")
	require.Error(t, err)

	out, err = run(t, store, "", "contacts", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "asha@")
	assert.Contains(t, out, "Madina Stores")
}

func TestPay_RecordsTransaction(t *testing.T) {
	store := kvstore.NewMemory()

	resp := runJSON(t, store, "pay", "vinitadubey063@okicici", "250", "--pin", "2580")
	require.Equal(t, "ok", resp.Status, "error: %+v", resp.Error)
	tx := resp.Data.(map[string]any)
	assert.Equal(t, "250", tx["amount"])
	assert.Equal(t, "Vinita", tx["payee"].(map[string]any)["name"])
	id := tx["id"].(string)

	out, err := run(t, store, "", "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "₹250")
	assert.Contains(t, out, "Vinita")
}

func TestPay_UnknownPayeeUsesNameFlag(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "", "pay", "ravi@okaxis", "40", "--pin", "2580", "--name", "Ravi")
	require.NoError(t, err)
	assert.Contains(t, out, "Payment successful")
	assert.Contains(t, out, "Ravi (ravi@okaxis)")
}

func TestPay_WrongPIN(t *testing.T) {
	store := kvstore.NewMemory()

	resp := runJSON(t, store, "pay", "vinitadubey063@okicici", "250", "--pin", "1111")
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, domain.IncorrectPINMessage, resp.Error.Message)

	out, err := run(t, store, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions yet.")
}

func TestPay_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero amount", []string{"pay", "a@ybl", "0", "--pin", "2580"}},
		{"fractional amount", []string{"pay", "a@ybl", "10.5", "--pin", "2580"}},
		{"short PIN", []string{"pay", "a@ybl", "10", "--pin", "258"}},
		{"non-digit PIN", []string{"pay", "a@ybl", "10", "--pin", "25a0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, kvstore.NewMemory(), "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
		})
	}
}

func TestHistory_DeleteAndClear(t *testing.T) {
	store := kvstore.NewMemory()

	var ids []string
	for _, upi := range []string{"a@ybl", "b@ybl", "c@ybl"} {
		resp := runJSON(t, store, "pay", upi, "10", "--pin", "2580")
		require.Equal(t, "ok", resp.Status)
		ids = append(ids, resp.Data.(map[string]any)["id"].(string))
	}

	out, err := run(t, store, "", "history", "list", "--query", "B@")
	require.NoError(t, err)
	assert.Contains(t, out, ids[1])
	assert.NotContains(t, out, ids[0])

	_, err = run(t, store, "", "history", "delete", ids[0])
	require.NoError(t, err)

	_, err = run(t, store, "", "history", "delete", ids[0])
	require.Error(t, err)

	out, err = run(t, store, "", "history", "delete", ids[1], "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 of 2 transactions")

	out, err = run(t, store, "n\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = run(t, store, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, ids[2])

	out, err = run(t, store, "yes\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction history cleared.")

	_, err = store.Get(context.Background(), persist.KeyTransactions)
	assert.ErrorIs(t, err, port.ErrKeyNotFound)
}

func TestHistory_Copy(t *testing.T) {
	store := kvstore.NewMemory()
	resp := runJSON(t, store, "pay", "a@ybl", "10", "--pin", "2580")
	require.Equal(t, "ok", resp.Status)
	id := resp.Data.(map[string]any)["id"].(string)

	errBuf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{cfg: testConfig(), store: store})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"history", "copy", id})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(errBuf.String(), "\x1b]52;c;"))
}

func TestScan(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "\n\nupi://pay?pa=paytmqr5ebrzh@ptys&pn=Some%20Name\n", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "DEEPAK FARSHAN MART (paytmqr5ebrzh@ptys)")

	resp := runJSON(t, store, "scan", "--file", writeFrames(t, "https://example.com\n"))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "invalid_qr", resp.Error.Code)
	assert.Equal(t, domain.InvalidQRMessage, resp.Error.Message)
}

func writeFrames(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTab(t *testing.T) {
	store := kvstore.NewMemory()

	out, err := run(t, store, "", "tab")
	require.NoError(t, err)
	assert.Contains(t, out, "[ Home ]")

	out, err = run(t, store, "", "tab", "pay")
	require.NoError(t, err)
	assert.Contains(t, out, "[ Pay ]")
	assert.Contains(t, out, "No transactions yet.")

	resp := runJSON(t, store, "tab", "profile")
	require.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Profile", resp.Data.(map[string]any)["tab"])
}
