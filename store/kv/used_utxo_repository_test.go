// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package kvstore_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	kvstore "github.com/BoostyLabs/twowaypeg/store/kv"
)

const (
	owner      = "bcrt1powner"
	otherOwner = "bcrt1pother"
)

func utxo(txHash string, index uint32, amount int64) bitcoin.UTXO {
	return bitcoin.UTXO{TxHash: txHash, Index: index, Amount: big.NewInt(amount), Address: owner}
}

func TestUsedUTXOStore(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{"in memory", func(*testing.T) string { return "" }},
		{"on disk", func(t *testing.T) string { return t.TempDir() }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			testUsedUTXOStore(t, test.dir(t))
		})
	}
}

func testUsedUTXOStore(t *testing.T, dir string) {
	var (
		ctx       = context.Background()
		start     = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		testClock = clock.NewTestClock(start)
		available = []bitcoin.UTXO{utxo("aa", 0, 5000), utxo("aa", 1, 3000), utxo("bb", 0, 2000), utxo("cc", 2, 700)}
	)

	s, err := kvstore.NewUsedUTXOStore(dir, testClock)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	require.NoError(t, s.Add(ctx, owner, "tx1", available[:2]))
	testClock.SetTime(start.Add(time.Minute))
	require.NoError(t, s.Add(ctx, owner, "tx2", available[2:3]))
	require.NoError(t, s.Add(ctx, otherOwner, "tx3", available[3:]))

	t.Run("list", func(t *testing.T) {
		records, err := s.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, "tx1", records[0].TxID)
		require.Equal(t, "tx2", records[1].TxID)
		require.Len(t, records[0].UTXOs, 2)
		require.EqualValues(t, 5000, records[0].UTXOs[0].Amount.Int64())
		require.True(t, records[0].CreatedAt.Equal(start))

		records, err = s.List(ctx, "unknown")
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("filter available", func(t *testing.T) {
		free, err := s.FilterAvailable(ctx, owner, available)
		require.NoError(t, err)
		require.Equal(t, []bitcoin.UTXO{available[3]}, free)

		free, err = s.FilterAvailable(ctx, otherOwner, available)
		require.NoError(t, err)
		require.Equal(t, available[:3], free)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, owner, "tx2"))
		require.NoError(t, s.Remove(ctx, owner, "missing"))

		free, err := s.FilterAvailable(ctx, owner, available)
		require.NoError(t, err)
		require.Equal(t, available[2:], free)
	})

	t.Run("prune", func(t *testing.T) {
		pruned, err := s.Prune(ctx, start.Add(30*time.Second))
		require.NoError(t, err)
		require.Equal(t, 1, pruned)

		records, err := s.List(ctx, owner)
		require.NoError(t, err)
		require.Empty(t, records)

		records, err = s.List(ctx, otherOwner)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}
