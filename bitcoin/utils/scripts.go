// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrInvalidXOnlyKey defines that provided key is not a valid 32 bytes x-only key.
	ErrInvalidXOnlyKey = errors.New("invalid x-only public key")
	// ErrInvalidUnlockHeight defines that reclaim height is zero or not a block height.
	ErrInvalidUnlockHeight = errors.New("invalid unlock block height")
)

// lockTimeThreshold is the value below which lock time is interpreted as block height.
const lockTimeThreshold = 500_000_000

// NewReclaimLeafTapScript generates time-locked user reclaim script for taproot leaf.
// INFO: Script will have the next format: {<unlockBlockHeight> OP_CHECKLOCKTIMEVERIFY OP_DROP <userXOnlyPubKey> OP_CHECKSIG}.
func NewReclaimLeafTapScript(unlockBlockHeight uint32, userXOnlyPubKey []byte) ([]byte, error) {
	if unlockBlockHeight == 0 || unlockBlockHeight >= lockTimeThreshold {
		return nil, ErrInvalidUnlockHeight
	}
	if err := checkXOnlyKey(userXOnlyPubKey); err != nil {
		return nil, err
	}

	return txscript.NewScriptBuilder().
		AddInt64(int64(unlockBlockHeight)).
		AddOp(txscript.OP_CHECKLOCKTIMEVERIFY).
		AddOp(txscript.OP_DROP).
		AddData(userXOnlyPubKey).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// NewTapScriptTreeFromRawScripts builds tapScript tree from provided raw leaf scripts.
func NewTapScriptTreeFromRawScripts(leafScripts ...[]byte) (*txscript.IndexedTapScriptTree, error) {
	if len(leafScripts) == 0 {
		return nil, errors.New("no leaf scripts provided")
	}

	var tapLeafs = make([]txscript.TapLeaf, len(leafScripts))
	for i, leafScript := range leafScripts {
		tapLeafs[i] = txscript.NewBaseTapLeaf(leafScript)
	}

	return txscript.AssembleTaprootScriptTree(tapLeafs...), nil
}

// UpdatePSBTInputWithTapScriptLeafData updates provided psbt input with all data needed to sign
// via the first leaf of the tree. Input must carry internal key and the leaf script as witness script.
func UpdatePSBTInputWithTapScriptLeafData(input *psbt.PInput, tapScriptTree *txscript.IndexedTapScriptTree) error {
	if len(input.TaprootInternalKey) == 0 {
		return errors.New("no taproot internal key provided")
	}
	if len(input.WitnessScript) == 0 {
		return errors.New("no witness script provided")
	}

	tapLeaf := txscript.NewBaseTapLeaf(input.WitnessScript)
	internalKey, err := schnorr.ParsePubKey(input.TaprootInternalKey)
	if err != nil {
		return err
	}

	ctrlBlock := tapScriptTree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	tapLeafScript := &psbt.TaprootTapLeafScript{
		Script:      tapLeaf.Script,
		LeafVersion: tapLeaf.LeafVersion,
	}
	tapLeafScript.ControlBlock, err = ctrlBlock.ToBytes()
	if err != nil {
		return err
	}

	if len(input.TaprootLeafScript) == 0 {
		input.TaprootLeafScript = []*psbt.TaprootTapLeafScript{tapLeafScript}
	}

	if len(input.TaprootMerkleRoot) == 0 {
		input.TaprootMerkleRoot = ctrlBlock.RootHash(tapLeaf.Script)
	}

	return nil
}

func checkXOnlyKey(xOnlyPubKey []byte) error {
	if len(xOnlyPubKey) != schnorr.PubKeyBytesLen {
		return ErrInvalidXOnlyKey
	}
	if _, err := schnorr.ParsePubKey(xOnlyPubKey); err != nil {
		return errors.Join(ErrInvalidXOnlyKey, err)
	}

	return nil
}
