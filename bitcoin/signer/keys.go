// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

var (
	// ErrNoPrivateKey defines that signer has no private key to sign with.
	ErrNoPrivateKey = errors.New("no private key")
	// ErrInvalidHash defines that provided hash is not 32 bytes long.
	ErrInvalidHash = errors.New("invalid hash length")
)

// Signer signs 32 bytes hashes with ECDSA and BIP340 Schnorr schemes.
type Signer interface {
	// PublicKey returns public key matching signatures produced by the signer.
	PublicKey() *btcec.PublicKey
	// Sign returns ECDSA signature of the hash.
	Sign(hash []byte) (*ecdsa.Signature, error)
	// SignSchnorr returns BIP340 signature of the hash.
	SignSchnorr(hash []byte) (*schnorr.Signature, error)
}

// PrivateKeyProvider is implemented by signers exposing their private key.
type PrivateKeyProvider interface {
	PrivateKey() *btcec.PrivateKey
}

// KeySigner is a Signer backed by a plain private key.
type KeySigner struct {
	privateKey *btcec.PrivateKey
}

// NewKeySigner is a constructor for KeySigner.
func NewKeySigner(privateKey *btcec.PrivateKey) *KeySigner {
	return &KeySigner{
		privateKey: privateKey,
	}
}

// PrivateKey returns underlying private key.
func (s *KeySigner) PrivateKey() *btcec.PrivateKey {
	return s.privateKey
}

// PublicKey returns public key of the signer, nil if there is no private key.
func (s *KeySigner) PublicKey() *btcec.PublicKey {
	if s.privateKey == nil {
		return nil
	}

	return s.privateKey.PubKey()
}

// Sign returns ECDSA signature of the hash.
func (s *KeySigner) Sign(hash []byte) (*ecdsa.Signature, error) {
	if err := s.check(hash); err != nil {
		return nil, err
	}

	return ecdsa.Sign(s.privateKey, hash), nil
}

// SignSchnorr returns BIP340 signature of the hash.
func (s *KeySigner) SignSchnorr(hash []byte) (*schnorr.Signature, error) {
	if err := s.check(hash); err != nil {
		return nil, err
	}

	return schnorr.Sign(s.privateKey, hash)
}

// Zero clears private key from memory.
func (s *KeySigner) Zero() {
	if s.privateKey != nil {
		s.privateKey.Zero()
		s.privateKey = nil
	}
}

func (s *KeySigner) check(hash []byte) error {
	if s.privateKey == nil {
		return ErrNoPrivateKey
	}
	if len(hash) != 32 {
		return ErrInvalidHash
	}

	return nil
}
