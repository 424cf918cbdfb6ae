// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"

	"github.com/BoostyLabs/twowaypeg/bitcoin"
	"github.com/BoostyLabs/twowaypeg/internal/numbers"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2
	// signHashType define signature hash type for input signing.
	signHashType = txscript.SigHashDefault
)

var (
	// DefaultDustLimit defines the smallest output amount in satoshi that is not considered dust.
	DefaultDustLimit = big.NewInt(546)

	maxSatoshi = big.NewInt(btcutil.MaxSatoshi)

	// ErrForeignUTXO defines that utxo is not locked to the depositor key.
	ErrForeignUTXO = errors.New("utxo is not spendable by depositor key")
)

// DepositParams describes data needed to build deposit transaction into custody address.
type DepositParams struct {
	UTXOs               []bitcoin.UTXO // depositor available utxos, any order.
	DestinationAddress  string         // custody (hot reserve) taproot address.
	Amount              *big.Int       // satoshi to deposit, ignored if DepositAll.
	InternalXOnlyPubKey []byte         // depositor taproot internal key.
	SatoshiPerVByte     *big.Int       // fee rate in satoshi per virtual byte.
	DepositAll          bool           // spend every utxo without change output.
}

// TxBuilder provides transaction building related logic.
type TxBuilder struct {
	networkParams *chaincfg.Params
	dustLimit     *big.Int
}

// NewTxBuilder is a constructor for TxBuilder. Uses DefaultDustLimit if dustLimit is nil.
func NewTxBuilder(networkParams *chaincfg.Params, dustLimit *big.Int) *TxBuilder {
	if dustLimit == nil {
		dustLimit = DefaultDustLimit
	}

	return &TxBuilder{
		networkParams: networkParams,
		dustLimit:     dustLimit,
	}
}

// BuildDepositPSBT constructs unsigned deposit transaction as serialized PSBT.
// Returns serialized PSBT, used utxos, fee in satoshi, and error if any.
// Used utxos must be recorded by the caller before broadcasting.
//
//	Tx struct
//	inputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - n │ base inputs  │ depositor taproot utxos, largest first │
//	└─────────┴──────────────┴────────────────────────────────────────┘
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│       0 │ deposit      │ custody address, amount or all - fee.  │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│       1 │ change       │ optional, depositor taproot address,   │
//	│         │              │ only if change is above dust limit.    │
//	└─────────┴──────────────┴────────────────────────────────────────┘
func (b *TxBuilder) BuildDepositPSBT(params DepositParams) ([]byte, []*bitcoin.UTXO, *big.Int, error) {
	tx, usedUTXOs, fee, err := b.buildDepositTx(params)
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, nil, err
	}

	inputBuilder, err := NewPSBTInputBuilder(hex.EncodeToString(params.InternalXOnlyPubKey),
		b.senderAddress(params.InternalXOnlyPubKey), b.networkParams)
	if err != nil {
		return nil, nil, nil, err
	}

	for i, utxo := range usedUTXOs {
		script := utxo.Script
		if len(script) == 0 {
			script = inputBuilder.PkScript()
		}

		p.Inputs[i].WitnessUtxo = wire.NewTxOut(utxo.Amount.Int64(), script)
		p.Inputs[i].SighashType = signHashType
		inputBuilder.PrepareInput(&p.Inputs[i])
	}

	w := bytes.NewBuffer(nil)
	err = p.Serialize(w)
	if err != nil {
		return nil, nil, nil, err
	}

	return w.Bytes(), usedUTXOs, fee, nil
}

// buildDepositTx constructs unsigned deposit transaction.
func (b *TxBuilder) buildDepositTx(params DepositParams) (*wire.MsgTx, []*bitcoin.UTXO, *big.Int, error) {
	if params.SatoshiPerVByte == nil || !numbers.IsPositive(params.SatoshiPerVByte) {
		return nil, nil, nil, bitcoin.ErrInvalidFeeRate
	}

	senderXOnlyKey, err := schnorrKey(params.InternalXOnlyPubKey)
	if err != nil {
		return nil, nil, nil, err
	}

	senderAddress := b.senderAddress(senderXOnlyKey)
	senderScript, err := b.addressScript(senderAddress)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, utxo := range params.UTXOs {
		if len(utxo.Script) != 0 && !bytes.Equal(utxo.Script, senderScript) {
			return nil, nil, nil, errors.Join(ErrForeignUTXO, errors.New(utxo.Outpoint()))
		}
	}

	var (
		usedUTXOs     []*bitcoin.UTXO
		totalAmount   *big.Int
		fee           *big.Int
		withChange    bool
		depositAmount *big.Int
	)
	if params.DepositAll {
		usedUTXOs, totalAmount, fee, err = PrepareAllUTXOs(params.UTXOs, params.SatoshiPerVByte, b.dustLimit)
		if err != nil {
			return nil, nil, nil, err
		}

		depositAmount = new(big.Int).Sub(totalAmount, fee)
	} else {
		if params.Amount == nil || numbers.IsLess(params.Amount, b.dustLimit) {
			return nil, nil, nil, bitcoin.ErrInvalidAmount
		}

		usedUTXOs, totalAmount, fee, withChange, err = PrepareUTXOs(params.UTXOs, params.Amount,
			params.SatoshiPerVByte, b.dustLimit)
		if err != nil {
			return nil, nil, nil, err
		}

		depositAmount = new(big.Int).Set(params.Amount)
	}

	tx := wire.NewMsgTx(txVersion)
	for _, i := range usedUTXOs {
		utxoHash, err := chainhash.NewHashFromStr(i.TxHash)
		if err != nil {
			return nil, nil, nil, err
		}

		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(utxoHash, i.Index), nil, nil))
	}

	// subtract fee.
	unallocatedAmount := new(big.Int).Sub(totalAmount, fee)

	// deposit output (#0).
	err = b.addOutput(tx, depositAmount, unallocatedAmount, params.DestinationAddress)
	if err != nil {
		return nil, nil, nil, err
	}

	// change output (#1).
	if withChange {
		err = b.addOutput(tx, unallocatedAmount, unallocatedAmount, senderAddress)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return tx, usedUTXOs, fee, nil
}

// PrepareUTXOs selects utxos largest first until they cover transfer amount with estimated fee.
// Returns used utxos, total satoshi amount of utxos, fee in satoshi, flag whether change output
// is needed and error if any. Change at or below dustLimit is absorbed into returned fee.
func PrepareUTXOs(utxos []bitcoin.UTXO, transferAmount, satoshiPerVByte, dustLimit *big.Int) (usedUTXOs []*bitcoin.UTXO,
	totalAmount, fee *big.Int, withChange bool, err error) {
	order, err := SortUTXOs(utxos)
	if err != nil {
		return nil, nil, nil, false, err
	}

	totalAmount = big.NewInt(0)
	usedUTXOs = make([]*bitcoin.UTXO, 0, len(order))
	for _, utxo := range order {
		usedUTXOs = append(usedUTXOs, utxo)
		totalAmount.Add(totalAmount, utxo.Amount)

		// stop once covered without change output.
		fee = EstimateFee(len(usedUTXOs), false, satoshiPerVByte)
		if numbers.IsLess(totalAmount, new(big.Int).Add(transferAmount, fee)) {
			continue
		}

		fee = EstimateFee(len(usedUTXOs), true, satoshiPerVByte)
		change := new(big.Int).Sub(totalAmount, new(big.Int).Add(transferAmount, fee))
		if numbers.IsGreater(change, dustLimit) {
			return usedUTXOs, totalAmount, fee, true, nil
		}

		return usedUTXOs, totalAmount, new(big.Int).Sub(totalAmount, transferAmount), false, nil
	}

	need := new(big.Int).Add(transferAmount, EstimateFee(len(usedUTXOs), false, satoshiPerVByte))

	return nil, nil, nil, false, ErrInsufficientUTXO.clarify(need, totalAmount)
}

// PrepareAllUTXOs selects every utxo for single output transaction.
// Returns used utxos, total satoshi amount of utxos, fee in satoshi and error if any.
func PrepareAllUTXOs(utxos []bitcoin.UTXO, satoshiPerVByte, dustLimit *big.Int) (usedUTXOs []*bitcoin.UTXO,
	totalAmount, fee *big.Int, err error) {
	usedUTXOs, err = SortUTXOs(utxos)
	if err != nil {
		return nil, nil, nil, err
	}

	totalAmount = big.NewInt(0)
	for _, utxo := range usedUTXOs {
		totalAmount.Add(totalAmount, utxo.Amount)
	}

	fee = EstimateFee(len(usedUTXOs), false, satoshiPerVByte)
	need := new(big.Int).Add(fee, dustLimit)
	if len(usedUTXOs) == 0 || !numbers.IsGreater(totalAmount, need) {
		return nil, nil, nil, ErrInsufficientUTXO.clarify(need, totalAmount)
	}

	return usedUTXOs, totalAmount, fee, nil
}

// SortUTXOs returns pointers to utxos ordered by amount desc, then by tx hash and index asc.
// Returns bitcoin.ErrInvalidAmount if any utxo amount is missing or not positive.
func SortUTXOs(utxos []bitcoin.UTXO) ([]*bitcoin.UTXO, error) {
	sorted := make([]*bitcoin.UTXO, len(utxos))
	for idx := range utxos {
		if utxos[idx].Amount == nil || !numbers.IsPositive(utxos[idx].Amount) {
			return nil, errors.Join(bitcoin.ErrInvalidAmount, errors.New(utxos[idx].Outpoint()))
		}

		sorted[idx] = &utxos[idx]
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := sorted[i].Amount.Cmp(sorted[j].Amount); cmp != 0 {
			return cmp > 0
		}
		if sorted[i].TxHash != sorted[j].TxHash {
			return sorted[i].TxHash < sorted[j].TxHash
		}

		return sorted[i].Index < sorted[j].Index
	})

	return sorted, nil
}

// RoughTxSizeEstimate returns signed deposit tx estimated size in vBytes for
// provided amount of taproot key path inputs, one taproot output and optional taproot change.
func RoughTxSizeEstimate(inputs int, withChange bool) *big.Int {
	var changeScriptSize int
	if withChange {
		changeScriptSize = txsizes.P2TRPkScriptSize
	}

	depositOutput := wire.NewTxOut(0, make([]byte, txsizes.P2TRPkScriptSize))
	size := txsizes.EstimateVirtualSize(0, inputs, 0, 0, []*wire.TxOut{depositOutput}, changeScriptSize)

	return big.NewInt(int64(size))
}

// EstimateFee returns fee in satoshi for deposit tx with provided inputs amount.
func EstimateFee(inputs int, withChange bool, satoshiPerVByte *big.Int) *big.Int {
	return new(big.Int).Mul(RoughTxSizeEstimate(inputs, withChange), satoshiPerVByte)
}

// addOutput adds output to transaction, subtracts amount from unallocated amount.
func (b *TxBuilder) addOutput(tx *wire.MsgTx, amount, unallocatedAmount *big.Int, address string) error {
	if numbers.IsLess(unallocatedAmount, amount) {
		return errors.New("unallocated amount is less than the amount in provided inputs")
	}
	if !numbers.IsInRange(amount, numbers.ZeroBigInt, maxSatoshi) {
		return bitcoin.ErrInvalidAmount
	}

	destinationAddrByte, err := b.addressScript(address)
	if err != nil {
		return err
	}

	tx.AddTxOut(wire.NewTxOut(amount.Int64(), destinationAddrByte))
	unallocatedAmount.Sub(unallocatedAmount, amount)

	return nil
}

// addressScript returns output script for address on builder network.
func (b *TxBuilder) addressScript(address string) ([]byte, error) {
	recipientAddress, err := btcutil.DecodeAddress(address, b.networkParams)
	if err != nil {
		return nil, err
	}
	if !recipientAddress.IsForNet(b.networkParams) {
		return nil, errors.Join(btcutil.ErrUnknownAddressType, errors.New("address is for another network"))
	}

	return txscript.PayToAddrScript(recipientAddress)
}

// senderAddress returns key path only taproot address for x-only key, empty if key is invalid.
func (b *TxBuilder) senderAddress(xOnlyPubKey []byte) string {
	address, err := TaprootKeyPathAddress(xOnlyPubKey, b.networkParams)
	if err != nil {
		return ""
	}

	return address.EncodeAddress()
}
