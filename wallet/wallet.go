// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package wallet derives deterministic bitcoin wallet from a solana wallet signature.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/gagliardetto/solana-go"

	"github.com/BoostyLabs/twowaypeg/bitcoin/signer"
	"github.com/BoostyLabs/twowaypeg/errs"
)

var (
	// ErrNoPublicKey defines that solana wallet public key is not provided.
	ErrNoPublicKey = errors.New("no solana public key")
	// ErrNoSignCapability defines that solana wallet can not sign messages.
	ErrNoSignCapability = errors.New("solana wallet can not sign messages")
	// ErrSignatureFailed defines that authorization message was not signed.
	ErrSignatureFailed = errors.New("authorization message signing failed")
	// ErrInvalidSeed defines that signature hash is not a valid private key.
	ErrInvalidSeed = errors.New("invalid private key seed")
)

// authorizationMessageFormat is signed once per session, the only variable part is solana address.
const authorizationMessageFormat = "Sign this message to derive your Bitcoin wallet for the two-way peg.\n" +
	"This signature never leaves your device and does not authorize any transaction.\n\n" +
	"Solana address: %s"

// MessageSigner signs raw message with solana wallet key, may block on user approval.
type MessageSigner func(ctx context.Context, message []byte) ([]byte, error)

// DerivedBitcoinWallet holds bitcoin keys and addresses derived from solana signature.
// Lives in memory only.
type DerivedBitcoinWallet struct {
	PrivateKey    *btcec.PrivateKey
	PublicKey     *btcec.PublicKey
	P2PKH         *btcutil.AddressPubKeyHash
	P2WPKH        *btcutil.AddressWitnessPubKeyHash
	P2TR          *btcutil.AddressTaproot
	Signer        *signer.KeySigner
	TweakedSigner *signer.TweakedSigner
}

// XOnlyPubKey returns taproot internal key of the wallet.
func (w *DerivedBitcoinWallet) XOnlyPubKey() []byte {
	return schnorr.SerializePubKey(w.PublicKey)
}

// zero clears key material.
func (w *DerivedBitcoinWallet) zero() {
	if w.TweakedSigner != nil {
		w.TweakedSigner.Zero()
	}
	if w.Signer != nil {
		w.Signer.Zero()
	}
	w.PrivateKey = nil
}

// AuthorizationMessage returns message to be signed by solana wallet for bitcoin wallet derivation.
func AuthorizationMessage(solanaPubkey solana.PublicKey) []byte {
	return []byte(fmt.Sprintf(authorizationMessageFormat, solanaPubkey.String()))
}

// Derive asks solana wallet to sign authorization message and derives bitcoin wallet from the signature.
// Signature failures are classified as errs.UserRejected or errs.NetworkError.
func Derive(ctx context.Context, solanaPubkey solana.PublicKey, network *chaincfg.Params,
	signMessage MessageSigner) (*DerivedBitcoinWallet, error) {
	if solanaPubkey == (solana.PublicKey{}) {
		return nil, errs.InvalidInput.Wrap(ErrNoPublicKey)
	}
	if signMessage == nil {
		return nil, errs.InvalidInput.Wrap(ErrNoSignCapability)
	}

	signature, err := signMessage(ctx, AuthorizationMessage(solanaPubkey))
	if err != nil {
		return nil, classifySignatureError(ctx, err)
	}
	if len(signature) == 0 {
		return nil, errs.NetworkError.Wrap(errors.Join(ErrSignatureFailed, errors.New("empty signature")))
	}

	return FromSignature(signature, network)
}

// FromSignature derives wallet from authorization message signature.
// Identical signatures always yield identical wallets.
func FromSignature(signature []byte, network *chaincfg.Params) (*DerivedBitcoinWallet, error) {
	seed := chainhash.HashB(signature)

	var scalar btcec.ModNScalar
	overflow := scalar.SetByteSlice(seed)
	if overflow || scalar.IsZero() {
		return nil, errs.InvalidInput.Wrap(ErrInvalidSeed)
	}

	privateKey := btcec.PrivKeyFromScalar(&scalar)
	publicKey := privateKey.PubKey()
	compressed := publicKey.SerializeCompressed()

	p2pkh, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(compressed), network)
	if err != nil {
		return nil, err
	}

	p2wpkh, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(compressed), network)
	if err != nil {
		return nil, err
	}

	outputKey := txscript.ComputeTaprootKeyNoScript(publicKey)
	p2tr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), network)
	if err != nil {
		return nil, err
	}

	keySigner := signer.NewKeySigner(privateKey)
	tweakedSigner, err := signer.Tweak(keySigner, nil)
	if err != nil {
		return nil, err
	}

	return &DerivedBitcoinWallet{
		PrivateKey:    privateKey,
		PublicKey:     publicKey,
		P2PKH:         p2pkh,
		P2WPKH:        p2wpkh,
		P2TR:          p2tr,
		Signer:        keySigner,
		TweakedSigner: tweakedSigner,
	}, nil
}

// classifySignatureError wraps signing failure with its kind.
func classifySignatureError(ctx context.Context, err error) error {
	err = errors.Join(ErrSignatureFailed, err)
	if errors.Is(err, errs.ErrUserRejected) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return errs.UserRejected.Wrap(err)
	}

	return errs.NetworkError.Wrap(err)
}
