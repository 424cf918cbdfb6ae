// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrInvalidTweak defines errors class for taproot key tweaking.
var ErrInvalidTweak = errors.New("invalid tweak")

// oddYPrefix is the compressed public key prefix for odd Y coordinate.
const oddYPrefix = 0x03

// TweakedSigner is a Signer holding BIP341 tweaked private key.
type TweakedSigner struct {
	*KeySigner
	internalKey  *btcec.PublicKey
	tapTweakHash []byte
}

// InternalKey returns public key of the untweaked signer.
func (s *TweakedSigner) InternalKey() *btcec.PublicKey {
	return s.internalKey
}

// TapTweakHash returns hash committed into the key, empty for key path only keys.
func (s *TweakedSigner) TapTweakHash() []byte {
	return s.tapTweakHash
}

// Tweak returns signer with private key tweaked according to BIP341:
// tweaked = (d + TaggedHash("TapTweak", xOnly(P) || tapTweakHash)) mod n,
// where d is negated first if P has odd Y.
// tapTweakHash is optional (e.g. script tree merkle root), nil means key path only.
func Tweak(base Signer, tapTweakHash []byte) (*TweakedSigner, error) {
	if len(tapTweakHash) != 0 && len(tapTweakHash) != chainhash.HashSize {
		return nil, errors.Join(ErrInvalidTweak, errors.New("tap tweak hash must be 32 bytes"))
	}

	provider, ok := base.(PrivateKeyProvider)
	if !ok || provider.PrivateKey() == nil {
		return nil, errors.Join(ErrInvalidTweak, ErrNoPrivateKey)
	}

	privateKey := provider.PrivateKey()
	publicKey := privateKey.PubKey()
	publicKeyBytes := publicKey.SerializeCompressed()

	scalar := privateKey.Key
	if publicKeyBytes[0] == oddYPrefix {
		scalar.Negate()
	}

	tweakHash := chainhash.TaggedHash(chainhash.TagTapTweak, publicKeyBytes[1:], tapTweakHash)

	var tweak btcec.ModNScalar
	if overflow := tweak.SetByteSlice(tweakHash[:]); overflow {
		return nil, errors.Join(ErrInvalidTweak, errors.New("tweak exceeds curve order"))
	}

	scalar.Add(&tweak)
	if scalar.IsZero() {
		return nil, errors.Join(ErrInvalidTweak, errors.New("tweaked key is zero"))
	}

	var hash []byte
	if len(tapTweakHash) != 0 {
		hash = append(hash, tapTweakHash...)
	}

	return &TweakedSigner{
		KeySigner:    NewKeySigner(btcec.PrivKeyFromScalar(&scalar)),
		internalKey:  publicKey,
		tapTweakHash: hash,
	}, nil
}
