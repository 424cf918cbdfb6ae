// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrNotSigned defines that input has neither key path nor script path signature.
var ErrNotSigned = errors.New("input is not signed")

// FinalizeAndExtract finalizes every taproot input of the packet and returns the signed transaction.
// Key path inputs are finalized by psbt package, single signature leaf spends are assembled here.
func FinalizeAndExtract(packet *psbt.Packet) (*wire.MsgTx, error) {
	for idx := range packet.Inputs {
		input := &packet.Inputs[idx]
		switch {
		case len(input.FinalScriptWitness) != 0:
		case len(input.TaprootKeySpendSig) != 0:
			if err := psbt.Finalize(packet, idx); err != nil {
				return nil, err
			}
		case len(input.TaprootScriptSpendSig) != 0:
			if err := finalizeLeafSpend(input); err != nil {
				return nil, err
			}
		default:
			return nil, ErrNotSigned
		}
	}

	return psbt.Extract(packet)
}

// finalizeLeafSpend builds witness {<sig> <script> <control block>} for the first signed leaf.
func finalizeLeafSpend(input *psbt.PInput) error {
	spendSig := input.TaprootScriptSpendSig[0]
	for _, leaf := range input.TaprootLeafScript {
		leafHash := txscript.NewTapLeaf(leaf.LeafVersion, leaf.Script).TapHash()
		if !bytes.Equal(leafHash[:], spendSig.LeafHash) {
			continue
		}

		sig := spendSig.Signature
		if spendSig.SigHash != txscript.SigHashDefault {
			sig = append(append([]byte{}, sig...), byte(spendSig.SigHash))
		}

		witness := wire.TxWitness{sig, leaf.Script, leaf.ControlBlock}

		var buf bytes.Buffer
		if err := wire.WriteVarInt(&buf, 0, uint64(len(witness))); err != nil {
			return err
		}
		for _, item := range witness {
			if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
				return err
			}
		}

		input.FinalScriptWitness = buf.Bytes()
		input.TaprootScriptSpendSig = nil
		input.TaprootLeafScript = nil

		return nil
	}

	return ErrNoLeafForKey
}
