// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package kvstore implements store interfaces on top of badger.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	"github.com/BoostyLabs/twowaypeg/store"
)

const usedUTXOStoreDir = "used-utxos"

type usedUTXOStore struct {
	db    *badgerhold.Store
	clock clock.Clock
}

// NewUsedUTXOStore opens store under dir, in memory if dir is empty.
func NewUsedUTXOStore(dir string, clk clock.Clock) (store.UsedUTXOStore, error) {
	if dir != "" {
		dir = filepath.Join(dir, usedUTXOStoreDir)
	}
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	db, err := createDB(dir, log.WithField("store", usedUTXOStoreDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open used utxo store: %w", err)
	}

	return &usedUTXOStore{
		db:    db,
		clock: clk,
	}, nil
}

func (s *usedUTXOStore) Add(_ context.Context, owner, txID string, utxos []bitcoin.UTXO) error {
	record := store.UsedUTXOs{
		Owner:     owner,
		TxID:      txID,
		UTXOs:     utxos,
		CreatedAt: s.clock.Now(),
	}

	if err := s.db.Upsert(recordKey(owner, txID), &record); err != nil {
		return fmt.Errorf("failed to add used utxos: %w", err)
	}

	return nil
}

func (s *usedUTXOStore) List(_ context.Context, owner string) ([]store.UsedUTXOs, error) {
	var records []store.UsedUTXOs
	if err := s.db.Find(&records, badgerhold.Where("Owner").Eq(owner)); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

func (s *usedUTXOStore) FilterAvailable(ctx context.Context, owner string,
	utxos []bitcoin.UTXO) ([]bitcoin.UTXO, error) {
	records, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	return store.ExcludeUsed(utxos, records), nil
}

func (s *usedUTXOStore) Remove(_ context.Context, owner, txID string) error {
	err := s.db.Delete(recordKey(owner, txID), store.UsedUTXOs{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}

	return nil
}

func (s *usedUTXOStore) Prune(_ context.Context, before time.Time) (int, error) {
	var records []store.UsedUTXOs
	if err := s.db.Find(&records, nil); err != nil {
		return 0, err
	}

	var pruned int
	for _, record := range records {
		if !record.CreatedAt.Before(before) {
			continue
		}

		if err := s.db.Delete(recordKey(record.Owner, record.TxID), store.UsedUTXOs{}); err != nil {
			return pruned, err
		}
		pruned++
	}

	return pruned, nil
}

func (s *usedUTXOStore) Close() error {
	return s.db.Close()
}

func recordKey(owner, txID string) string {
	return owner + "/" + txID
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
