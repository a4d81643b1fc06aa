package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saffaucet/quota"
)

func openTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func appendRecord(t *testing.T, store *BoltStore, age time.Duration, ip, address string, success bool) {
	t.Helper()
	err := store.Append(context.Background(), &Record{
		ID:               ip + "/" + address + "/" + age.String(),
		IP:               ip,
		RecipientAddress: address,
		Success:          success,
		TxHash:           "TXHASH",
		Timestamp:        time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func TestBoltStoreCountsOnlySuccessesInsideWindow(t *testing.T) {
	store := openTestBoltStore(t)

	appendRecord(t, store, time.Minute, "203.0.113.7", "addr_safro1aaa", true)
	appendRecord(t, store, 2*time.Hour, "203.0.113.7", "addr_safro1bbb", true)
	appendRecord(t, store, 3*time.Hour, "203.0.113.7", "addr_safro1aaa", false)
	appendRecord(t, store, 25*time.Hour, "203.0.113.7", "addr_safro1aaa", true)

	since := time.Now().UTC().Add(-24 * time.Hour)

	byIP, err := store.CountSuccessfulSince(context.Background(), quota.KeyIP, "203.0.113.7", since)
	require.NoError(t, err)
	assert.Equal(t, 2, byIP, "failed and aged-out records must not count")

	byAddress, err := store.CountSuccessfulSince(context.Background(), quota.KeyAddress, "addr_safro1aaa", since)
	require.NoError(t, err)
	assert.Equal(t, 1, byAddress)
}

func TestBoltStoreKeysAreIndependent(t *testing.T) {
	store := openTestBoltStore(t)

	appendRecord(t, store, time.Minute, "203.0.113.7", "addr_safro1aaa", true)
	appendRecord(t, store, time.Minute, "198.51.100.9", "addr_safro1aaa", true)

	since := time.Now().UTC().Add(-24 * time.Hour)

	byIP, err := store.CountSuccessfulSince(context.Background(), quota.KeyIP, "203.0.113.7", since)
	require.NoError(t, err)
	assert.Equal(t, 1, byIP)

	byAddress, err := store.CountSuccessfulSince(context.Background(), quota.KeyAddress, "addr_safro1aaa", since)
	require.NoError(t, err)
	assert.Equal(t, 2, byAddress, "address quota pools requests from every IP")
}

func TestBoltStoreRejectsUnknownKeyField(t *testing.T) {
	store := openTestBoltStore(t)
	appendRecord(t, store, time.Minute, "203.0.113.7", "addr_safro1aaa", true)

	_, err := store.CountSuccessfulSince(context.Background(), "user_agent", "curl", time.Now().Add(-time.Hour))
	assert.Error(t, err)
}
