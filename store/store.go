// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package store defines persisted state of the deposit flow.
package store

import (
	"context"
	"time"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
)

// UsedUTXOs is a set of utxos consumed by one built deposit transaction.
type UsedUTXOs struct {
	Owner     string // owner taproot address.
	TxID      string
	UTXOs     []bitcoin.UTXO
	CreatedAt time.Time
}

// UsedUTXOStore keeps utxos consumed by built but possibly unconfirmed transactions,
// so they are not selected again before indexer catches up.
type UsedUTXOStore interface {
	// Add records utxos consumed by transaction txID of owner.
	Add(ctx context.Context, owner, txID string, utxos []bitcoin.UTXO) error
	// List returns every record of owner, oldest first.
	List(ctx context.Context, owner string) ([]UsedUTXOs, error)
	// FilterAvailable returns utxos not referenced by any owner record, order is kept.
	FilterAvailable(ctx context.Context, owner string, utxos []bitcoin.UTXO) ([]bitcoin.UTXO, error)
	// Remove deletes record of transaction txID.
	Remove(ctx context.Context, owner, txID string) error
	// Prune deletes records created before provided time, returns how many were deleted.
	Prune(ctx context.Context, before time.Time) (int, error)
	// Close releases underlying storage.
	Close() error
}

// ExcludeUsed returns utxos whose outpoints are not present in used records.
func ExcludeUsed(utxos []bitcoin.UTXO, used []UsedUTXOs) []bitcoin.UTXO {
	var spent = make(map[string]struct{})
	for _, record := range used {
		for _, utxo := range record.UTXOs {
			spent[utxo.Outpoint()] = struct{}{}
		}
	}

	available := make([]bitcoin.UTXO, 0, len(utxos))
	for _, utxo := range utxos {
		if _, ok := spent[utxo.Outpoint()]; ok {
			continue
		}

		available = append(available, utxo)
	}

	return available
}
