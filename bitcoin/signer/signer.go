// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrInvalidInputIndex defines that input index is out of PSBT inputs range.
	ErrInvalidInputIndex = errors.New("invalid input index")
	// ErrMissingWitnessUTXO defines that PSBT input has no witness utxo to compute sighash.
	ErrMissingWitnessUTXO = errors.New("missing witness utxo")
	// ErrKeyMismatch defines that signer key does not match input output key.
	ErrKeyMismatch = errors.New("signer key does not match taproot output key")
	// ErrNoLeafForKey defines that none of input leaf scripts commits to signer key.
	ErrNoLeafForKey = errors.New("no taproot leaf script for signer key")
)

// signTaprootInputParams defines parameters for signTaprootInput method.
type signTaprootInputParams struct {
	packet       *psbt.Packet
	input        int
	inputFetcher txscript.PrevOutputFetcher
	signer       Signer
}

// PSBTSigner provides transaction signing related logic.
type PSBTSigner struct {
	networkParams *chaincfg.Params
}

// NewPSBTSigner is a constructor for PSBTSigner.
func NewPSBTSigner(networkParams *chaincfg.Params) *PSBTSigner {
	return &PSBTSigner{
		networkParams: networkParams,
	}
}

// SignTaprootPacket signs taproot key path inputs of already parsed packet in place.
func (signer *PSBTSigner) SignTaprootPacket(packet *psbt.Packet, inputs []int, s Signer) error {
	return signer.signInputs(packet, inputs, s, signer.signTaprootInput)
}

// SignTaprootScriptPathPacket signs every leaf script of provided inputs that commits to signer key.
// Signer must hold the untweaked key referenced by the leaf.
func (signer *PSBTSigner) SignTaprootScriptPathPacket(packet *psbt.Packet, inputs []int, s Signer) error {
	return signer.signInputs(packet, inputs, s, signer.signTaprootLeaves)
}

// signInputs validates inputs and calls signFn for each of them.
func (signer *PSBTSigner) signInputs(packet *psbt.Packet, inputs []int, s Signer,
	signFn func(signTaprootInputParams) error) error {
	var (
		tx                   = packet.UnsignedTx
		prevOutputFetcherMap = make(map[wire.OutPoint]*wire.TxOut, len(tx.TxIn))
	)
	for idx, in := range packet.Inputs {
		if in.WitnessUtxo == nil {
			return ErrMissingWitnessUTXO
		}

		prevOutputFetcherMap[tx.TxIn[idx].PreviousOutPoint] = in.WitnessUtxo
	}

	var prevOutputFetcher = txscript.NewMultiPrevOutFetcher(prevOutputFetcherMap)
	for _, input := range inputs {
		if input < 0 || len(packet.Inputs) <= input {
			return ErrInvalidInputIndex
		}

		err := signFn(signTaprootInputParams{
			packet:       packet,
			input:        input,
			inputFetcher: prevOutputFetcher,
			signer:       s,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// signTaprootInput signs taproot input via key path.
func (signer *PSBTSigner) signTaprootInput(params signTaprootInputParams) error {
	var (
		input       = &params.packet.Inputs[params.input]
		sigHashes   = txscript.NewTxSigHashes(params.packet.UnsignedTx, params.inputFetcher)
		pkScript    = input.WitnessUtxo.PkScript
		sigHashType = input.SighashType
	)

	if params.signer == nil || params.signer.PublicKey() == nil {
		return ErrNoPrivateKey
	}

	if !txscript.IsPayToTaproot(pkScript) ||
		!bytes.Equal(pkScript[2:], schnorr.SerializePubKey(params.signer.PublicKey())) {
		return ErrKeyMismatch
	}

	hash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, sigHashType, params.packet.UnsignedTx, params.input, params.inputFetcher,
	)
	if err != nil {
		return err
	}

	sig, err := params.signer.SignSchnorr(hash)
	if err != nil {
		return err
	}

	sigBytes := sig.Serialize()
	if sigHashType != txscript.SigHashDefault {
		sigBytes = append(sigBytes, byte(sigHashType))
	}

	input.TaprootKeySpendSig = sigBytes

	return nil
}

// signTaprootLeaves signs input leaf scripts via script path.
func (signer *PSBTSigner) signTaprootLeaves(params signTaprootInputParams) error {
	var (
		input       = &params.packet.Inputs[params.input]
		sigHashes   = txscript.NewTxSigHashes(params.packet.UnsignedTx, params.inputFetcher)
		sigHashType = input.SighashType
		signed      bool
	)

	if params.signer == nil || params.signer.PublicKey() == nil {
		return ErrNoPrivateKey
	}

	xOnlyPubKey := schnorr.SerializePubKey(params.signer.PublicKey())
	for _, leaf := range input.TaprootLeafScript {
		if !bytes.Contains(leaf.Script, xOnlyPubKey) {
			continue
		}

		tapLeaf := txscript.NewTapLeaf(leaf.LeafVersion, leaf.Script)
		hash, err := txscript.CalcTapscriptSignaturehash(
			sigHashes, sigHashType, params.packet.UnsignedTx, params.input, params.inputFetcher, tapLeaf,
		)
		if err != nil {
			return err
		}

		sig, err := params.signer.SignSchnorr(hash)
		if err != nil {
			return err
		}

		leafHash := tapLeaf.TapHash()
		input.TaprootScriptSpendSig = append(input.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
			XOnlyPubKey: xOnlyPubKey,
			LeafHash:    leafHash[:],
			Signature:   sig.Serialize(),
			SigHash:     sigHashType,
		})
		signed = true
	}

	if !signed {
		return ErrNoLeafForKey
	}

	return nil
}
