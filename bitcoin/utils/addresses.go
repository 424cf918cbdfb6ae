// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// CustodyAddress describes hot reserve address and data needed to spend it.
type CustodyAddress struct {
	Address     *btcutil.AddressTaproot
	InternalKey *btcec.PublicKey // guardian key, spends via key path.
	ReclaimLeaf []byte           // user reclaim script, spends after unlock height.
	Tree        *txscript.IndexedTapScriptTree
}

// NewCustodyAddress generates hot reserve taproot address controlled by guardian key path
// with one user reclaim leaf time-locked at unlockBlockHeight.
func NewCustodyAddress(chainParams *chaincfg.Params, guardianXOnlyPubKey, userXOnlyPubKey []byte,
	unlockBlockHeight uint32) (*CustodyAddress, error) {
	if err := checkXOnlyKey(guardianXOnlyPubKey); err != nil {
		return nil, err
	}

	reclaimLeaf, err := NewReclaimLeafTapScript(unlockBlockHeight, userXOnlyPubKey)
	if err != nil {
		return nil, err
	}

	internalKey, err := schnorr.ParsePubKey(guardianXOnlyPubKey)
	if err != nil {
		return nil, err
	}

	tree, err := NewTapScriptTreeFromRawScripts(reclaimLeaf)
	if err != nil {
		return nil, err
	}

	address, err := taprootAddressFromTree(chainParams, internalKey, tree)
	if err != nil {
		return nil, err
	}

	return &CustodyAddress{
		Address:     address,
		InternalKey: internalKey,
		ReclaimLeaf: reclaimLeaf,
		Tree:        tree,
	}, nil
}

func taprootAddressFromTree(chainParams *chaincfg.Params, internalKey *btcec.PublicKey,
	tree *txscript.IndexedTapScriptTree) (*btcutil.AddressTaproot, error) {
	tapScriptRootHash := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, tapScriptRootHash[:])

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}
