// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// InputsToSign returns indexes of inputs whose taproot internal key equals provided x-only key.
func InputsToSign(data []byte, xOnlyPubKey []byte) ([]int, error) {
	p, err := psbt.NewFromRawBytes(bytes.NewBuffer(data), false)
	if err != nil {
		return nil, err
	}

	return InputsToSignPacket(p, xOnlyPubKey), nil
}

// InputsToSignPacket is InputsToSign for already parsed packet.
func InputsToSignPacket(p *psbt.Packet, xOnlyPubKey []byte) []int {
	var result = make([]int, 0, len(p.Inputs))
	for idx, input := range p.Inputs {
		if len(input.TaprootInternalKey) == 0 || !bytes.Equal(input.TaprootInternalKey, xOnlyPubKey) {
			continue
		}

		result = append(result, idx)
	}

	return result
}

// LeafInputsToSignPacket returns indexes of inputs having a leaf script that commits to provided x-only key.
func LeafInputsToSignPacket(p *psbt.Packet, xOnlyPubKey []byte) []int {
	var result = make([]int, 0, len(p.Inputs))
	for idx, input := range p.Inputs {
		for _, leaf := range input.TaprootLeafScript {
			if len(xOnlyPubKey) != 0 && bytes.Contains(leaf.Script, xOnlyPubKey) {
				result = append(result, idx)
				break
			}
		}
	}

	return result
}
