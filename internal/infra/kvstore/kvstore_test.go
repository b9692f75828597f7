package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/kvstore"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s port.KVStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "supermoney_profile_name", "Asha"))
	v, err := s.Get(ctx, "supermoney_profile_name")
	require.NoError(t, err)
	assert.Equal(t, "Asha", v)

	require.NoError(t, s.Set(ctx, "supermoney_profile_name", "Asha K"))
	v, err = s.Get(ctx, "supermoney_profile_name")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", v)

	require.NoError(t, s.Remove(ctx, "supermoney_profile_name"))
	_, err = s.Get(ctx, "supermoney_profile_name")
	assert.ErrorIs(t, err, port.ErrKeyNotFound)

	require.NoError(t, s.Remove(ctx, "never-set"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, kvstore.NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	s, err := kvstore.OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	ctx := context.Background()

	s, err := kvstore.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "supermoney_profile_phone", "+91 98765 43210"))
	require.NoError(t, s.Close())

	s, err = kvstore.OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "supermoney_profile_phone")
	require.NoError(t, err)
	assert.Equal(t, "+91 98765 43210", v)
}
