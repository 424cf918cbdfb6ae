// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrPSBTInputBuilder defines errors class for prepare address data method.
	ErrPSBTInputBuilder = errors.New("prepare address data")
	// ErrKeyAddressMismatch defines that taproot address is not key path address of provided key.
	ErrKeyAddressMismatch = errors.New("address is not derived from provided key")
	// ErrInvalidXOnlyKey defines that provided key is not a valid 32 bytes x-only key.
	ErrInvalidXOnlyKey = errors.New("invalid x-only public key")
)

// P2TR defines P2TR (taproot) script type over which the address is built.
const P2TR = "P2TR"

// PSBTInputBuilder is a helping tool to prepare psbt input based on address type.
// Only taproot key path inputs are supported.
type PSBTInputBuilder struct {
	params      *chaincfg.Params
	scriptType  string
	address     btcutil.Address
	xOnlyPubKey []byte
	pkScript    []byte
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
// pubKey is hex encoded compressed or x-only key.
func NewPSBTInputBuilder(pubKey, address string, networkParams *chaincfg.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	publicKeyBytes, err := hex.DecodeString(pubKey)
	if err != nil {
		return pib, err
	}

	if len(publicKeyBytes) == 33 {
		publicKeyBytes = publicKeyBytes[1:]
	}

	pib.xOnlyPubKey, err = schnorrKey(publicKeyBytes)
	if err != nil {
		return pib, err
	}

	pib.address, err = btcutil.DecodeAddress(address, pib.params)
	if err != nil {
		return pib, err
	}

	switch addr := pib.address.(type) {
	case *btcutil.AddressTaproot:
		pib.scriptType = P2TR

		expected, err := TaprootKeyPathAddress(pib.xOnlyPubKey, pib.params)
		if err != nil {
			return pib, err
		}
		if !bytes.Equal(addr.WitnessProgram(), expected.WitnessProgram()) {
			return pib, ErrKeyAddressMismatch
		}
	default:
		return pib, btcutil.ErrUnknownAddressType
	}

	pib.pkScript, err = txscript.PayToAddrScript(pib.address)
	if err != nil {
		return pib, err
	}

	return pib, nil
}

// PrepareInput updates input with required data based on address type.
func (pib *PSBTInputBuilder) PrepareInput(input *psbt.PInput) {
	if pib.scriptType == P2TR {
		input.TaprootInternalKey = pib.xOnlyPubKey
	}
}

// PkScript returns output script locked to builder address.
func (pib *PSBTInputBuilder) PkScript() []byte {
	return pib.pkScript
}

// ScriptType returns underlying script type.
func (pib *PSBTInputBuilder) ScriptType() string {
	return pib.scriptType
}

// TaprootKeyPathAddress returns BIP86 taproot address (no script tree) for x-only internal key.
func TaprootKeyPathAddress(xOnlyPubKey []byte, networkParams *chaincfg.Params) (*btcutil.AddressTaproot, error) {
	if _, err := schnorrKey(xOnlyPubKey); err != nil {
		return nil, err
	}

	internalKey, _ := schnorr.ParsePubKey(xOnlyPubKey)
	outputKey := txscript.ComputeTaprootKeyNoScript(internalKey)

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), networkParams)
}

// schnorrKey validates x-only key, returns it unchanged.
func schnorrKey(xOnlyPubKey []byte) ([]byte, error) {
	if len(xOnlyPubKey) != schnorr.PubKeyBytesLen {
		return nil, ErrInvalidXOnlyKey
	}
	if _, err := schnorr.ParsePubKey(xOnlyPubKey); err != nil {
		return nil, errors.Join(ErrInvalidXOnlyKey, err)
	}

	return xOnlyPubKey, nil
}
